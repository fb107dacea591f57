package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/a2arun/runtime/adapter"
	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/taskengine"
)

func testCard() protocol.AgentCard {
	return protocol.AgentCard{Name: "echo-agent", Description: "echoes input"}
}

func TestServeAgentCardJSON(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "echo-agent", body["name"])
}

func TestServeAgentCardHTMLFallback(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "agent-card")
}

func TestRPCTasksSend(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	msg, err := protocol.NewMessage("conv-1", protocol.RoleUser, protocol.NewTextPart("ping")).ToDict()
	require.NoError(t, err)
	msgBytes, err := json.Marshal(msg)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "tasks/send",
		"id":      1,
		"params": map[string]any{
			"conversation_id": "conv-1",
			"message":         json.RawMessage(msgBytes),
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/a2a", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestRPCUnknownMethod(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "method": "bogus/method", "id": 1})
	req := httptest.NewRequest(http.MethodPost, "/a2a", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func sendParamsBody(t *testing.T, conversationID, text string) []byte {
	t.Helper()
	msg, err := protocol.NewMessage(conversationID, protocol.RoleUser, protocol.NewTextPart(text)).ToDict()
	require.NoError(t, err)
	msgBytes, err := json.Marshal(msg)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"params": map[string]any{
			"conversation_id": conversationID,
			"message":         json.RawMessage(msgBytes),
		},
	})
	require.NoError(t, err)
	return body
}

func TestDedicatedTasksSendRoute(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodPost, "/tasks/send", bytes.NewReader(sendParamsBody(t, "conv-2", "hi")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestDedicatedTasksSendRouteMirroredUnderA2A(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodPost, "/a2a/tasks/send", bytes.NewReader(sendParamsBody(t, "conv-3", "hi")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestDedicatedTasksGetAndCancelRoutes(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodPost, "/tasks/send", bytes.NewReader(sendParamsBody(t, "conv-4", "hi")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	var sendResp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sendResp))
	result := sendResp.Result.(map[string]any)
	taskID := result["task_id"].(string)

	getBody, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 2, "params": map[string]any{"task_id": taskID}})
	getReq := httptest.NewRequest(http.MethodPost, "/tasks/get", bytes.NewReader(getBody))
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	var getResp Response
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &getResp))
	require.Nil(t, getResp.Error)

	cancelReq := httptest.NewRequest(http.MethodPost, "/tasks/cancel", bytes.NewReader(getBody))
	cancelRec := httptest.NewRecorder()
	srv.ServeHTTP(cancelRec, cancelReq)
	var cancelResp Response
	require.NoError(t, json.Unmarshal(cancelRec.Body.Bytes(), &cancelResp))
	require.Nil(t, cancelResp.Error)
}

func TestHealthRouteAndMirror(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	for _, path := range []string{"/health", "/a2a/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "ok", path)
	}
}

func TestLegacyPostMessageReturnsMessage(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	msg, err := protocol.NewMessage("conv-5", protocol.RoleUser, protocol.NewTextPart("ping")).ToDict()
	require.NoError(t, err)
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	decoded, err := protocol.MessageFromDict(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.RoleAgent, decoded.Role)
	assert.Equal(t, "Echo: ping", decoded.Content.Text)
}

func TestLegacyPostConversationAppendsReply(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	conv := protocol.NewConversation()
	conv = conv.AddMessage(protocol.NewMessage(conv.ConversationID, protocol.RoleUser, protocol.NewTextPart("ping")))
	dict, err := conv.ToDict()
	require.NoError(t, err)
	body, err := json.Marshal(dict)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	decoded, err := protocol.ConversationFromDict(reply)
	require.NoError(t, err)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, protocol.RoleAgent, decoded.Messages[1].Role)
	assert.Equal(t, "Echo: ping", decoded.Messages[1].Content.Text)
}

func TestLegacyPostMalformedBodyReturnsErrorMessage(t *testing.T) {
	srv := NewServer(taskengine.New(adapter.EchoAdapter{}), testCard())
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	decoded, err := protocol.MessageFromDict(reply)
	require.NoError(t, err)
	assert.Equal(t, protocol.PartError, decoded.Content.Kind)
}
