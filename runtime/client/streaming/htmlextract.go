package streaming

import (
	"encoding/json"
	"errors"
	"html"
	"strings"
)

// ErrAgentCardNotEmbedded is returned when an HTML agent-card page does not
// carry a recognizable embedded JSON block.
var ErrAgentCardNotEmbedded = errors.New("streaming: agent card not embedded in HTML response")

// ExtractJSONFromHTML pulls the agent card JSON out of the
// `<script type="application/json" id="agent-card">...</script>` block the
// HTML fallback page (runtime/transport/http's serveAgentCard) embeds. This
// is intentionally a narrow string scan rather than a full HTML parser:
// the only structure this client needs to recover is that one script tag.
func ExtractJSONFromHTML(body string) (map[string]any, error) {
	const marker = `id="agent-card"`
	idx := strings.Index(body, marker)
	if idx < 0 {
		return nil, ErrAgentCardNotEmbedded
	}
	start := strings.Index(body[idx:], ">")
	if start < 0 {
		return nil, ErrAgentCardNotEmbedded
	}
	start += idx + 1
	end := strings.Index(body[start:], "</script>")
	if end < 0 {
		return nil, ErrAgentCardNotEmbedded
	}
	raw := html.UnescapeString(body[start : start+end])

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
