package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"foxshelf/internal/assistant"
	"foxshelf/internal/util"
	"foxshelf/pkg/domain"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type transcriptResponse struct {
	SessionID string            `json:"sessionId"`
	Turns     []domain.ChatTurn `json:"turns"`
	Awaiting  bool              `json:"awaiting"`
	LastError string            `json:"lastError,omitempty"`
}

// handleChat answers one assistant exchange as a server-sent event stream.
// The session id is announced first so a client without one can continue
// the conversation, then each text fragment is written as it arrives.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.chatLimiter.Allow(util.ClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many messages, slow down")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := s.app.AcquireChatSession(req.SessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if sess.Awaiting() {
		writeError(w, http.StatusConflict, assistant.ErrBusy.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "session", map[string]string{"sessionId": sess.ID})
	flusher.Flush()

	err = sess.Ask(r.Context(), req.Message, func(fragment string) error {
		writeEvent(w, "", map[string]string{"text": fragment})
		flusher.Flush()
		return nil
	})
	if err != nil {
		msg := "generation failed, try again"
		if errors.Is(err, assistant.ErrBusy) {
			msg = err.Error()
		}
		writeEvent(w, "error", map[string]string{"error": msg})
		flusher.Flush()
		return
	}

	writeEvent(w, "done", map[string]string{"sessionId": sess.ID})
	flusher.Flush()
}

// handleTranscript returns the turns of an existing session, including any
// partial assistant text and the retained error from an interrupted stream.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sess, ok := s.app.ChatSession(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{
		SessionID: sess.ID,
		Turns:     sess.Transcript(),
		Awaiting:  sess.Awaiting(),
		LastError: sess.LastError(),
	})
}

// writeEvent frames one server-sent event. An empty name emits a bare data
// message.
func writeEvent(w io.Writer, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if name != "" {
		io.WriteString(w, "event: "+name+"\n")
	}
	io.WriteString(w, "data: ")
	w.Write(data)
	io.WriteString(w, "\n\n")
}
