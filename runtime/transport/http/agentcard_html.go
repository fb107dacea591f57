package http

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"goa.design/a2arun/runtime/protocol"
)

// renderAgentCardHTML renders a minimal human-readable page for browsers
// that navigate to the agent-card discovery URL directly, embedding the
// same data the JSON response carries as a <script type="application/json">
// block so the sse client's HTML extractor (runtime/client/streaming) can
// recover the card without a full HTML parser.
func renderAgentCardHTML(card protocol.AgentCard) string {
	var skills strings.Builder
	for _, sk := range card.Skills {
		fmt.Fprintf(&skills, "<li><strong>%s</strong>: %s</li>", html.EscapeString(sk.Name), html.EscapeString(sk.Description))
	}
	data, _ := json.Marshal(card.ToDict())
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
<ul>%s</ul>
<script type="application/json" id="agent-card">%s</script>
</body></html>`,
		html.EscapeString(card.Name), html.EscapeString(card.Name),
		html.EscapeString(card.Description), skills.String(), data)
}
