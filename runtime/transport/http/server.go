package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"goa.design/a2arun/runtime/a2a/policy"
	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/stream"
	"goa.design/a2arun/runtime/taskengine"
	"goa.design/a2arun/runtime/telemetry"
	"goa.design/a2arun/runtime/transport/sse"
)

// Server serves the A2A JSON-RPC methods and agent-card discovery endpoint
// over HTTP, backed by a taskengine.Engine. Method dispatch and the
// request/response envelope mirror runtime/client/streaming.Client's wire
// shapes so this server and that client interoperate directly.
type Server struct {
	engine *taskengine.Engine
	card   protocol.AgentCard
	logger telemetry.Logger

	// AllowedOrigins configures CORS. "*" allows any origin.
	AllowedOrigins []string
}

// NewServer constructs a Server serving engine's tasks and the given static
// AgentCard.
func NewServer(engine *taskengine.Engine, card protocol.AgentCard) *Server {
	return &Server{
		engine:         engine,
		card:           card,
		logger:         telemetry.NewNoopLogger(),
		AllowedOrigins: []string{"*"},
	}
}

// taskMethodRoutes maps a dedicated per-method path to the JSON-RPC method
// it dispatches to. "tasks/stream" and "tasks/sendSubscribe" are aliases
// handling the same payload. Each of these is also served under an "/a2a"
// prefix.
var taskMethodRoutes = map[string]string{
	"/tasks/send":          "tasks/send",
	"/tasks/get":           "tasks/get",
	"/tasks/cancel":        "tasks/cancel",
	"/tasks/stream":        "tasks/sendSubscribe",
	"/tasks/sendSubscribe": "tasks/sendSubscribe",
}

// ServeHTTP implements http.Handler. It serves:
//   - GET  /agent.json (and /.well-known/agent-card, /a2a/agent.json, …):
//     the AgentCard, negotiated by Accept header between JSON and an HTML
//     fallback page.
//   - GET  /health (and /a2a/health): liveness.
//   - POST /: legacy direct Message or Conversation body.
//   - POST /a2a: generic JSON-RPC method dispatch (method named in the body).
//   - POST /tasks/send, /tasks/get, /tasks/cancel, /tasks/stream,
//     /tasks/sendSubscribe (each also under /a2a/…): the same JSON-RPC
//     envelope, with the method implied by the path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.applyCORS(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// "/a2a" itself is the generic RPC dispatch endpoint (method named in
	// the body); every other "/a2a/…" path is a mirror of its un-prefixed
	// counterpart ("each also mirrored under /a2a/…").
	path := r.URL.Path
	if path == "/a2a" {
		if r.Method == http.MethodPost {
			s.serveRPC(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	path = strings.TrimPrefix(path, "/a2a")
	if path == "" {
		path = "/"
	}

	switch {
	case r.Method == http.MethodGet && isAgentCardPath(path):
		s.serveAgentCard(w, r)
	case r.Method == http.MethodGet && path == "/health":
		s.serveHealth(w)
	case r.Method == http.MethodPost && path == "/":
		s.serveLegacy(w, r)
	case r.Method == http.MethodPost && taskMethodRoutes[path] != "":
		s.serveRPCForMethod(w, r, taskMethodRoutes[path])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) serveHealth(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func isAgentCardPath(path string) bool {
	switch path {
	case "/.well-known/agent-card", "/.well-known/agent-card.json", "/agent.json", "/agent-card":
		return true
	default:
		return false
	}
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range s.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+policy.AllowSkillsHeader+", "+policy.DenySkillsHeader)
}

// serveAgentCard negotiates between a JSON agent card and an HTML page
// embedding the same data, keyed off the request's Accept header. Browsers
// navigating directly to the discovery URL get a readable page; API clients
// requesting application/json get the raw card. A format=json query
// parameter always selects the raw card.
func (s *Server) serveAgentCard(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if r.URL.Query().Get("format") != "json" && strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(renderAgentCardHTML(s.card)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.card.ToDict())
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, NewErrorResponse(nil, CodeParseError, "invalid JSON"))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidRequest, "missing jsonrpc version or method"))
		return
	}

	ctx := policy.InjectPolicyToContext(r.Context(), policy.ExtractPolicyFromHeaders(
		r.Header.Get(policy.AllowSkillsHeader), r.Header.Get(policy.DenySkillsHeader)))

	switch req.Method {
	case "tasks/send":
		s.handleSend(ctx, w, req)
	case "tasks/get":
		s.handleGet(w, req)
	case "tasks/cancel":
		s.handleCancel(w, req)
	case "tasks/sendSubscribe":
		s.handleSendSubscribe(ctx, w, r, req)
	default:
		s.writeResponse(w, NewErrorResponse(req.ID, CodeMethodNotFound, "unknown method "+req.Method))
	}
}

type sendParams struct {
	ConversationID string          `json:"conversation_id"`
	Message        json.RawMessage `json:"message"`
}

func (s *Server) decodeSendParams(req Request) (string, protocol.Message, error) {
	var params sendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return "", protocol.Message{}, err
	}
	var msgObj map[string]any
	if err := json.Unmarshal(params.Message, &msgObj); err != nil {
		return "", protocol.Message{}, err
	}
	msg, err := protocol.MessageFromDict(msgObj)
	if err != nil {
		return "", protocol.Message{}, err
	}
	return params.ConversationID, msg, nil
}

func (s *Server) handleSend(ctx context.Context, w http.ResponseWriter, req Request) {
	conversationID, msg, err := s.decodeSendParams(req)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidParams, err.Error()))
		return
	}
	task, err := s.engine.Send(ctx, conversationID, msg)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, err.Error()))
		return
	}
	dict, err := task.ToDict()
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, err.Error()))
		return
	}
	s.writeResponse(w, NewResultResponse(req.ID, dict))
}

type getParams struct {
	TaskID        string `json:"task_id"`
	HistoryLength int    `json:"history_length"`
}

func (s *Server) handleGet(w http.ResponseWriter, req Request) {
	var params getParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidParams, err.Error()))
		return
	}
	task, err := s.engine.Get(params.TaskID, params.HistoryLength)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeTaskNotFound, err.Error()))
		return
	}
	dict, err := task.ToDict()
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, err.Error()))
		return
	}
	s.writeResponse(w, NewResultResponse(req.ID, dict))
}

func (s *Server) handleCancel(w http.ResponseWriter, req Request) {
	var params getParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidParams, err.Error()))
		return
	}
	task, err := s.engine.Cancel(params.TaskID)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeTaskNotFound, err.Error()))
		return
	}
	dict, err := task.ToDict()
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, err.Error()))
		return
	}
	s.writeResponse(w, NewResultResponse(req.ID, dict))
}

func (s *Server) handleSendSubscribe(_ context.Context, w http.ResponseWriter, r *http.Request, req Request) {
	conversationID, msg, err := s.decodeSendParams(req)
	if err != nil {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInvalidParams, err.Error()))
		return
	}

	writer, ok := sse.NewWriter(w)
	if !ok {
		s.writeResponse(w, NewErrorResponse(req.ID, CodeInternalError, "streaming unsupported"))
		return
	}
	sink := stream.SinkFunc(func(_ context.Context, event stream.Event) error {
		return writer.WriteEvent(event)
	})
	if err := s.engine.SendSubscribe(r.Context(), conversationID, msg, sink); err != nil {
		s.logger.Warn(r.Context(), "sendSubscribe ended with error", "err", err)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// serveRPCForMethod decodes req's envelope the same way serveRPC does but
// dispatches straight to method, the one implied by the request's path,
// rather than reading req.Method from the body. This serves the dedicated
// /tasks/… routes, alongside the generic /a2a dispatch.
func (s *Server) serveRPCForMethod(w http.ResponseWriter, r *http.Request, method string) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, NewErrorResponse(nil, CodeParseError, "invalid JSON"))
		return
	}
	req.Method = method

	ctx := policy.InjectPolicyToContext(r.Context(), policy.ExtractPolicyFromHeaders(
		r.Header.Get(policy.AllowSkillsHeader), r.Header.Get(policy.DenySkillsHeader)))

	switch method {
	case "tasks/send":
		s.handleSend(ctx, w, req)
	case "tasks/get":
		s.handleGet(w, req)
	case "tasks/cancel":
		s.handleCancel(w, req)
	case "tasks/sendSubscribe":
		s.handleSendSubscribe(ctx, w, r, req)
	default:
		s.writeResponse(w, NewErrorResponse(req.ID, CodeMethodNotFound, "unknown method "+method))
	}
}

// serveLegacy handles the pre-JSON-RPC POST / endpoint: the body is either a
// bare Message or a Conversation, and the response echoes the same shape
// it was sent. Recoverable failures are reported as a Message whose content
// is an Error part rather than a non-200 status.
func (s *Server) serveLegacy(w http.ResponseWriter, r *http.Request) {
	var obj map[string]any
	if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
		s.writeLegacyError(w, "", http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if _, isConversation := obj["messages"]; isConversation {
		s.serveLegacyConversation(r.Context(), w, obj)
		return
	}
	s.serveLegacyMessage(r.Context(), w, obj)
}

func (s *Server) serveLegacyMessage(ctx context.Context, w http.ResponseWriter, obj map[string]any) {
	msg, err := protocol.MessageFromDict(obj)
	if err != nil {
		s.writeLegacyError(w, "", http.StatusBadRequest, "invalid message: "+err.Error())
		return
	}
	reply, err := s.replyTo(ctx, msg)
	if err != nil {
		s.writeLegacyError(w, msg.ConversationID, http.StatusOK, err.Error())
		return
	}
	s.writeLegacyMessage(w, reply)
}

func (s *Server) serveLegacyConversation(ctx context.Context, w http.ResponseWriter, obj map[string]any) {
	conv, err := protocol.ConversationFromDict(obj)
	if err != nil {
		s.writeLegacyError(w, "", http.StatusBadRequest, "invalid conversation: "+err.Error())
		return
	}
	last, ok := conv.LastMessage()
	if !ok {
		s.writeLegacyError(w, conv.ConversationID, http.StatusBadRequest, "conversation has no messages")
		return
	}
	reply, err := s.replyTo(ctx, last)
	if err != nil {
		reply = protocol.NewMessage(conv.ConversationID, protocol.RoleAgent, protocol.NewErrorPart(err.Error()))
	}
	conv = conv.AddMessage(reply)
	dict, err := conv.ToDict()
	if err != nil {
		s.writeLegacyError(w, conv.ConversationID, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dict)
}

// replyTo runs msg through the task engine synchronously and projects the
// resulting task back down to a single reply Message: the text of its last
// artifact, or its status message if it produced none.
func (s *Server) replyTo(ctx context.Context, msg protocol.Message) (protocol.Message, error) {
	task, err := s.engine.Send(ctx, msg.ConversationID, msg)
	if err != nil {
		return protocol.Message{}, err
	}
	if task.Status.State == protocol.TaskFailed {
		return protocol.Message{}, errors.New(task.Status.Message)
	}
	if last := lastArtifactPart(task); last != nil {
		return protocol.NewMessage(msg.ConversationID, protocol.RoleAgent, *last), nil
	}
	return protocol.NewMessage(msg.ConversationID, protocol.RoleAgent, protocol.NewTextPart(task.Status.Message)), nil
}

// lastArtifactPart returns the last Part of task's last Artifact, or nil if
// the task produced no artifacts or an empty one.
func lastArtifactPart(task *protocol.Task) *protocol.Part {
	if len(task.Artifacts) == 0 {
		return nil
	}
	last := task.Artifacts[len(task.Artifacts)-1]
	if len(last.Parts) == 0 {
		return nil
	}
	p := last.Parts[len(last.Parts)-1]
	return &p
}

func (s *Server) writeLegacyMessage(w http.ResponseWriter, msg protocol.Message) {
	dict, err := msg.ToDict()
	if err != nil {
		s.writeLegacyError(w, msg.ConversationID, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dict)
}

// writeLegacyError writes a Message whose content is an Error part with the
// caller's status: 400 for malformed bodies and for a conversation with no
// messages, 500 when a reply cannot be encoded, and 200 for a failed reply
// to a single message. If the error Message itself cannot be encoded it
// answers 500 with no body.
func (s *Server) writeLegacyError(w http.ResponseWriter, conversationID string, status int, message string) {
	msg := protocol.NewMessage(conversationID, protocol.RoleAgent, protocol.NewErrorPart(message))
	dict, err := msg.ToDict()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dict)
}
