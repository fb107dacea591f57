package protocol

import "encoding/json"

// splitKnown decodes a JSON object into its known top-level keys (returned as
// raw messages for further typed decoding) and its unrecognized keys
// (returned decoded into an "extra" map). This is how every entity in this
// package stays forward-compatible: unknown keys survive a decode/encode
// round-trip instead of being silently dropped.
func splitKnown(data []byte, known ...string) (map[string]json.RawMessage, map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}
	fields := make(map[string]json.RawMessage, len(known))
	var extra map[string]any
	for k, v := range raw {
		if knownSet[k] {
			fields[k] = v
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, nil, err
		}
		extra[k] = val
	}
	return fields, extra, nil
}

// mergeExtra copies extra's keys into obj for any key obj does not already
// define, so unknown keys survive a re-encode without shadowing known fields.
func mergeExtra(obj map[string]any, extra map[string]any) map[string]any {
	for k, v := range extra {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
	return obj
}
