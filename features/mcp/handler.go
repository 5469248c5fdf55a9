package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"citeweb/features/chat"
	"citeweb/internal/apperr"
	"citeweb/internal/middleware"
	"citeweb/internal/models"
	"citeweb/internal/search"
)

const (
	ToolWebAnswer = "web_answer"
	ToolFetchPage = "fetch_page"

	protocolVersion = "2024-11-05"
	pageWordBudget  = 700
)

type Answerer interface {
	Answer(ctx context.Context, req chat.Request) (*models.ResponsePayload, error)
}

type PageExtractor interface {
	ExtractOne(ctx context.Context, src models.CandidateSource, wordBudget int) (models.ExtractedRecord, error)
}

type Handler struct {
	answerer     Answerer
	pages        PageExtractor
	sessions     map[string]chan string // sessionId -> serialized JSON-RPC responses
	sessionsLock sync.RWMutex
}

func NewHandler(a Answerer, p PageExtractor) *Handler {
	return &Handler{
		answerer: a,
		pages:    p,
		sessions: make(map[string]chan string),
	}
}

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type WebAnswerArgs struct {
	Query string   `json:"query"`
	URLs  []string `json:"urls,omitempty"`
	Model string   `json:"model,omitempty"`
}

type FetchPageArgs struct {
	URL string `json:"url"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	ErrParse          = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

var tools = []Tool{
	{
		Name: ToolWebAnswer,
		Description: `Answers a question from live web sources with numbered citations.

Sources come from the given urls, or from a web search for the query when no urls are given. The answer cites sources inline as (Source N); the numbered list that follows maps N to its URL.

USAGE EXAMPLES:
- web_answer(query="best biotracking wearables")
- web_answer(query="compare these", urls=["https://a.example", "https://b.example"])`,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]string{
					"type":        "string",
					"description": "The question to answer",
				},
				"urls": map[string]interface{}{
					"type":        "array",
					"items":       map[string]string{"type": "string"},
					"description": "Pages to answer from instead of searching",
				},
				"model": map[string]string{
					"type":        "string",
					"description": "Completion model override",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name: ToolFetchPage,
		Description: `Fetches one page and returns its title, heading, summary, author and leading text.

USAGE EXAMPLE:
fetch_page(url="https://example.com/article")`,
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]string{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			"required": []string{"url"},
		},
	},
}

// ProcessRequest handles one JSON-RPC request. It returns nil for
// notifications, which get no response.
func (h *Handler) ProcessRequest(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: map[string]interface{}{
				"protocolVersion": protocolVersion,
				"capabilities": map[string]interface{}{
					"tools": map[string]interface{}{},
				},
				"serverInfo": map[string]interface{}{
					"name":    "citeweb-mcp",
					"version": "1.0.0",
				},
			},
		}
	case "notifications/initialized":
		return nil
	case "tools/list":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ListToolsResult{Tools: tools}}
	case "tools/call":
		return h.callTool(ctx, req)
	}

	slog.WarnContext(ctx, "unknown jsonrpc method", "method", req.Method)
	resp := makeErrorResponse(req.ID, ErrMethodNotFound, "Method not found")
	return &resp
}

func (h *Handler) callTool(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		slog.WarnContext(ctx, "invalid params structure", "error", err)
		resp := makeErrorResponse(req.ID, ErrInvalidParams, "Invalid params")
		return &resp
	}

	start := time.Now()
	var (
		result ToolResult
		err    error
	)
	switch params.Name {
	case ToolWebAnswer:
		var args WebAnswerArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			resp := makeErrorResponse(req.ID, ErrInvalidParams, "Invalid arguments")
			return &resp
		}
		result, err = h.webAnswer(ctx, args)
	case ToolFetchPage:
		var args FetchPageArgs
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			resp := makeErrorResponse(req.ID, ErrInvalidParams, "Invalid arguments")
			return &resp
		}
		result, err = h.fetchPage(ctx, args)
	default:
		slog.WarnContext(ctx, "tool not found", "tool", params.Name)
		resp := makeErrorResponse(req.ID, ErrMethodNotFound, "Method not found: "+params.Name)
		return &resp
	}

	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			resp := makeErrorResponse(req.ID, ErrInvalidParams, err.Error())
			return &resp
		}
		slog.ErrorContext(ctx, "tool execution failed", "tool", params.Name, "error", err)
		result = ToolResult{
			Content: []ToolContent{{Type: "text", Text: "Error: " + err.Error()}},
			IsError: true,
		}
	} else {
		slog.InfoContext(ctx, "tool execution completed", "tool", params.Name, "duration", time.Since(start))
	}

	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (h *Handler) webAnswer(ctx context.Context, args WebAnswerArgs) (ToolResult, error) {
	if strings.TrimSpace(args.Query) == "" {
		return ToolResult{}, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}

	payload, err := h.answerer.Answer(ctx, chat.Request{
		Query: args.Query,
		URL:   args.URLs,
		Model: args.Model,
	})
	if err != nil {
		return ToolResult{}, err
	}

	var sb strings.Builder
	sb.WriteString(payload.Answer)
	if len(payload.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, s := range payload.Sources {
			title := s.Title
			if title == "" {
				title = s.Link
			}
			fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, title, s.Link)
		}
	}

	return ToolResult{Content: []ToolContent{{Type: "text", Text: sb.String()}}}, nil
}

func (h *Handler) fetchPage(ctx context.Context, args FetchPageArgs) (ToolResult, error) {
	u := strings.TrimSpace(args.URL)
	if u == "" {
		return ToolResult{}, fmt.Errorf("%w: url is required", apperr.ErrValidation)
	}

	rec, err := h.pages.ExtractOne(ctx, models.CandidateSource{
		Title:   search.PlaceholderTitle,
		Link:    u,
		Snippet: search.PlaceholderSnippet,
	}, pageWordBudget)
	if err != nil {
		return ToolResult{}, err
	}

	text := fmt.Sprintf("Page: %s\nURL: %s\nHeading: %s\nAuthor: %s\nSummary: %s\n\n%s",
		rec.Title, rec.SourceLink, rec.Heading, rec.Author, rec.Summary, rec.Content)
	return ToolResult{Content: []ToolContent{{Type: "text", Text: text}}}, nil
}

func makeErrorResponse(id interface{}, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		Error: map[string]interface{}{
			"code":    code,
			"message": message,
		},
		ID: id,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, nil, ErrParse, "Parse error")
		return
	}

	resp := h.ProcessRequest(r.Context(), req)
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleSSE holds an SSE session open and streams responses to messages
// posted for it.
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := uuid.New().String()
	msgChan := make(chan string, 100)

	h.sessionsLock.Lock()
	h.sessions[sessionID] = msgChan
	h.sessionsLock.Unlock()

	defer func() {
		h.sessionsLock.Lock()
		delete(h.sessions, sessionID)
		close(msgChan)
		h.sessionsLock.Unlock()
		slog.InfoContext(r.Context(), "sse session ended", "session_id", sessionID)
	}()

	slog.InfoContext(r.Context(), "sse session started", "session_id", sessionID)

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s/mcp/messages?sessionId=%s", scheme, r.Host, sessionID)

	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", html.EscapeString(endpoint))
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// HandleMessage accepts a JSON-RPC request for an SSE session. The response
// is delivered on the session stream, not in the HTTP reply.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		h.writeHTTPError(w, http.StatusBadRequest, apperr.CodeValidation, "Missing sessionId", correlationID)
		return
	}

	h.sessionsLock.RLock()
	_, exists := h.sessions[sessionID]
	h.sessionsLock.RUnlock()
	if !exists {
		slog.WarnContext(ctx, "session not found", "session_id", sessionID)
		h.writeHTTPError(w, http.StatusNotFound, apperr.CodeNotFound, "Session not found", correlationID)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeHTTPError(w, http.StatusBadRequest, apperr.CodeValidation, "Invalid JSON", correlationID)
		return
	}

	w.WriteHeader(http.StatusAccepted)

	// Keeps correlation id, drops the request's cancellation.
	bgCtx := context.WithoutCancel(ctx)

	go func() {
		resp := h.ProcessRequest(bgCtx, req)
		if resp == nil {
			return
		}
		respBytes, err := json.Marshal(resp)
		if err != nil {
			slog.ErrorContext(bgCtx, "failed to marshal response", "error", err)
			return
		}
		h.deliver(bgCtx, sessionID, string(respBytes))
	}()
}

// deliver sends msg to a live session. The read lock keeps the channel from
// being closed mid-send.
func (h *Handler) deliver(ctx context.Context, sessionID, msg string) {
	h.sessionsLock.RLock()
	defer h.sessionsLock.RUnlock()

	msgChan, ok := h.sessions[sessionID]
	if !ok {
		slog.WarnContext(ctx, "session closed before response", "session_id", sessionID)
		return
	}
	select {
	case msgChan <- msg:
	default:
		slog.WarnContext(ctx, "session channel full, dropping message", "session_id", sessionID)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	// JSON-RPC errors travel in a 200 response.
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(makeErrorResponse(id, code, message))
}

func (h *Handler) writeHTTPError(w http.ResponseWriter, status int, code, message, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"correlationId": correlationID,
	}
	json.NewEncoder(w).Encode(resp)
}
