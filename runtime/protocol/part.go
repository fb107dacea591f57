package protocol

import "encoding/json"

// PartKind tags the variant carried by a Part (and, by alias, a Content).
type PartKind string

// Known part/content kinds: Text, FunctionCall, FunctionResponse, and Error.
const (
	PartText             PartKind = "text"
	PartFunctionCall     PartKind = "function_call"
	PartFunctionResponse PartKind = "function_response"
	PartError            PartKind = "error"
)

// FunctionParameter is one named argument of a FunctionCall part. The list
// form (rather than a bare JSON object) is the canonical representation,
// preserving call-argument order across encode/decode round trips.
type FunctionParameter struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Part is a tagged union over the four content variants. A Message carries
// exactly one Part as its Content; an Artifact carries an ordered list of
// Parts. Content is an alias for Part: at the wire level a Message's single
// "content" object and an Artifact's "parts" list entries share the same
// shape.
type Part struct {
	Kind PartKind

	// Text is set when Kind == PartText.
	Text string

	// FunctionName is set when Kind == PartFunctionCall or PartFunctionResponse.
	FunctionName string
	// Parameters is set when Kind == PartFunctionCall.
	Parameters []FunctionParameter
	// Response is set when Kind == PartFunctionResponse.
	Response json.RawMessage

	// ErrorMessage is set when Kind == PartError.
	ErrorMessage string

	// Extra preserves unrecognized keys found on this part so a decode then
	// re-encode does not lose caller-supplied extension fields.
	Extra map[string]any
}

// Content is the type carried by a Message. It is structurally identical to
// Part; Messages carry one, Artifacts carry a list.
type Content = Part

// NewTextPart constructs a text-kind Part.
func NewTextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// NewFunctionCallPart constructs a function_call-kind Part.
func NewFunctionCallPart(name string, params []FunctionParameter) Part {
	return Part{Kind: PartFunctionCall, FunctionName: name, Parameters: params}
}

// NewFunctionResponsePart constructs a function_response-kind Part.
func NewFunctionResponsePart(name string, response json.RawMessage) Part {
	return Part{Kind: PartFunctionResponse, FunctionName: name, Response: response}
}

// NewErrorPart constructs an error-kind Part.
func NewErrorPart(message string) Part {
	return Part{Kind: PartError, ErrorMessage: message}
}

// MarshalJSON encodes the part using its native shape: a "type" discriminator
// plus the fields specific to that type.
func (p Part) MarshalJSON() ([]byte, error) {
	obj := map[string]any{"type": string(p.Kind)}
	switch p.Kind {
	case PartText:
		obj["text"] = p.Text
	case PartFunctionCall:
		obj["name"] = p.FunctionName
		obj["parameters"] = p.Parameters
		if p.Parameters == nil {
			obj["parameters"] = []FunctionParameter{}
		}
	case PartFunctionResponse:
		obj["name"] = p.FunctionName
		if len(p.Response) > 0 {
			obj["response"] = p.Response
		} else {
			obj["response"] = nil
		}
	case PartError:
		obj["message"] = p.ErrorMessage
	}
	mergeExtra(obj, p.Extra)
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a part from its native shape. An unrecognized "type"
// value yields ErrUnknownContentKind; unrecognized sibling keys are
// preserved in Extra.
func (p *Part) UnmarshalJSON(data []byte) error {
	fields, extra, err := splitKnown(data, "type", "text", "name", "parameters", "response", "message")
	if err != nil {
		return err
	}
	var kind string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &kind); err != nil {
			return err
		}
	}

	out := Part{Kind: PartKind(kind), Extra: extra}
	switch out.Kind {
	case PartText:
		if raw, ok := fields["text"]; ok {
			if err := json.Unmarshal(raw, &out.Text); err != nil {
				return err
			}
		}
	case PartFunctionCall:
		if raw, ok := fields["name"]; ok {
			if err := json.Unmarshal(raw, &out.FunctionName); err != nil {
				return err
			}
		}
		if raw, ok := fields["parameters"]; ok {
			if err := json.Unmarshal(raw, &out.Parameters); err != nil {
				return err
			}
		}
	case PartFunctionResponse:
		if raw, ok := fields["name"]; ok {
			if err := json.Unmarshal(raw, &out.FunctionName); err != nil {
				return err
			}
		}
		if raw, ok := fields["response"]; ok {
			out.Response = raw
		}
	case PartError:
		if raw, ok := fields["message"]; ok {
			if err := json.Unmarshal(raw, &out.ErrorMessage); err != nil {
				return err
			}
		}
	default:
		return &ErrUnknownContentKind{Kind: kind}
	}
	*p = out
	return nil
}

// ToGoogleA2A converts a part to the Google A2A compat part shape, which
// uses camelCase keys (functionCall/functionResponse nested objects instead
// of flattened name/parameters/response fields).
func (p Part) ToGoogleA2A() map[string]any {
	obj := map[string]any{"type": string(p.Kind)}
	switch p.Kind {
	case PartText:
		obj["text"] = p.Text
	case PartFunctionCall:
		obj["functionCall"] = map[string]any{
			"name":       p.FunctionName,
			"parameters": p.Parameters,
		}
	case PartFunctionResponse:
		var response any
		if len(p.Response) > 0 {
			_ = json.Unmarshal(p.Response, &response)
		}
		obj["functionResponse"] = map[string]any{
			"name":     p.FunctionName,
			"response": response,
		}
	case PartError:
		obj["error"] = map[string]any{"message": p.ErrorMessage}
	}
	return mergeExtra(obj, p.Extra)
}

// PartFromGoogleA2A decodes a part from the Google A2A compat shape produced
// by ToGoogleA2A.
func PartFromGoogleA2A(obj map[string]any) (Part, error) {
	kindVal, _ := obj["type"].(string)
	out := Part{Kind: PartKind(kindVal)}
	switch out.Kind {
	case PartText:
		out.Text, _ = obj["text"].(string)
	case PartFunctionCall:
		fc, _ := obj["functionCall"].(map[string]any)
		out.FunctionName, _ = fc["name"].(string)
		if params, ok := fc["parameters"].([]any); ok {
			for _, raw := range params {
				m, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				name, _ := m["name"].(string)
				value, err := json.Marshal(m["value"])
				if err != nil {
					return Part{}, err
				}
				out.Parameters = append(out.Parameters, FunctionParameter{Name: name, Value: value})
			}
		}
	case PartFunctionResponse:
		fr, _ := obj["functionResponse"].(map[string]any)
		out.FunctionName, _ = fr["name"].(string)
		resp, err := json.Marshal(fr["response"])
		if err != nil {
			return Part{}, err
		}
		out.Response = resp
	case PartError:
		errObj, _ := obj["error"].(map[string]any)
		out.ErrorMessage, _ = errObj["message"].(string)
	default:
		return Part{}, &ErrUnknownContentKind{Kind: kindVal}
	}
	extra := make(map[string]any, len(obj))
	for k, v := range obj {
		switch k {
		case "type", "text", "functionCall", "functionResponse", "error":
		default:
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		out.Extra = extra
	}
	return out, nil
}

// TextProjection returns the best-effort textual representation of the part,
// used by the workflow engine's conditional node to evaluate string
// predicates against non-text parts.
func (p Part) TextProjection() string {
	switch p.Kind {
	case PartText:
		return p.Text
	case PartFunctionResponse:
		return string(p.Response)
	case PartError:
		return p.ErrorMessage
	case PartFunctionCall:
		return p.FunctionName
	default:
		return ""
	}
}
