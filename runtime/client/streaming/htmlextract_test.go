package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromHTML(t *testing.T) {
	html := `<!DOCTYPE html><html><body><h1>echo-agent</h1>
<script type="application/json" id="agent-card">{"name":"echo-agent","description":"d"}</script>
</body></html>`

	obj, err := ExtractJSONFromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "echo-agent", obj["name"])
}

func TestExtractJSONFromHTMLMissing(t *testing.T) {
	_, err := ExtractJSONFromHTML(`<html><body>no card here</body></html>`)
	assert.ErrorIs(t, err, ErrAgentCardNotEmbedded)
}
