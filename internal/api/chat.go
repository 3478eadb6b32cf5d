package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

// chatHandler serves the REST chat endpoints. They exist for clients that
// cannot hold a WebSocket open; the session store is the same one the
// WebSocket loop uses.
type chatHandler struct {
	registry *session.Registry
	logger   log.Logger
}

func (h *chatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/send_message", h.sendMessage)
	mux.HandleFunc("GET /api/history", h.history)
	mux.HandleFunc("POST /api/reset", h.reset)
}

// MessageRequest is the POST /api/send_message body.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is the POST /api/send_message reply.
type MessageResponse struct {
	Response string `json:"response"`
}

// HistoryResponse is the GET /api/history reply.
type HistoryResponse struct {
	History []session.Message `json:"history"`
}

// StatusResponse is the POST /api/reset reply.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *chatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	id := clientID(r)
	sess, err := h.registry.GetOrCreate(r.Context(), id)
	if err != nil {
		h.logger.Error("send_message failed", "client_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	reply := sess.Respond(r.Context(), req.Message)
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Response: reply})
}

// history returns the caller's conversation. A caller without a session gets
// an empty history rather than an error, so page loads before the first
// message stay clean.
func (h *chatHandler) history(w http.ResponseWriter, r *http.Request) {
	resp := HistoryResponse{History: []session.Message{}}
	if sess, ok := h.registry.Lookup(clientID(r)); ok {
		resp.History = sess.History()
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *chatHandler) reset(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	sess, err := h.registry.GetOrCreate(r.Context(), id)
	if err != nil {
		h.logger.Error("reset failed", "client_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	sess.ResetHistory()
	writeJSON(w, h.logger, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: "Chat history reset",
	})
}

// clientID derives a stable session key for REST callers from the remote
// host, ignoring the ephemeral port.
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
