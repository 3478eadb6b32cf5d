package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/gateway"
	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

// fixedResponder answers every prompt with the same text.
type fixedResponder struct {
	reply string
	err   error
}

func (r *fixedResponder) Ask(context.Context, string) (string, error) {
	return r.reply, r.err
}

func (r *fixedResponder) Close() error { return nil }

func newTestServer(t *testing.T, factory session.Factory) *Server {
	t.Helper()
	logger := log.NewNop()
	registry := session.NewRegistry(factory, logger)
	t.Cleanup(registry.Shutdown)

	cfg := &config.Config{WelcomeMessage: config.DefaultWelcomeMessage}
	manager := gateway.NewManager(logger)
	loop := gateway.NewLoop(manager, registry, cfg, logger)

	return NewServer(ServerConfig{
		Registry: registry,
		WS:       gateway.NewWSHandler(loop, logger),
		Logger:   logger,
	})
}

func echoFactory(reply string) session.Factory {
	return func(_ context.Context, id string) (*session.Session, error) {
		return session.New(id, "prompt", &fixedResponder{reply: reply}, 0, log.NewNop()), nil
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, echoFactory("ok"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("no probe wired", func(t *testing.T) {
		srv := newTestServer(t, echoFactory("ok"))

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("probe failure", func(t *testing.T) {
		logger := log.NewNop()
		registry := session.NewRegistry(echoFactory("ok"), logger)
		cfg := &config.Config{WelcomeMessage: config.DefaultWelcomeMessage}
		loop := gateway.NewLoop(gateway.NewManager(logger), registry, cfg, logger)
		srv := NewServer(ServerConfig{
			Registry: registry,
			WS:       gateway.NewWSHandler(loop, logger),
			Ready: func(context.Context) error {
				return errors.New("tool server down")
			},
			Logger: logger,
		})

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "tool server down")
	})
}

func TestSendMessage(t *testing.T) {
	srv := newTestServer(t, echoFactory("4"))

	req := httptest.NewRequest(http.MethodPost, "/api/send_message",
		strings.NewReader(`{"message":"what is 2+2?"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"4"}`, rec.Body.String())
}

func TestSendMessage_InvalidBody(t *testing.T) {
	srv := newTestServer(t, echoFactory("4"))

	req := httptest.NewRequest(http.MethodPost, "/api/send_message",
		strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage_InitFailure(t *testing.T) {
	srv := newTestServer(t, func(context.Context, string) (*session.Session, error) {
		return nil, errors.New("tool server unreachable")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/send_message",
		strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "tool server unreachable")
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, echoFactory("pong"))

	// Before any exchange the history is empty, not an error.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/send_message",
		strings.NewReader(`{"message":"ping"}`))
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 2)
	assert.Equal(t, session.Message{Role: session.RoleUser, Content: "ping"}, body.History[0])
	assert.Equal(t, session.Message{Role: session.RoleAssistant, Content: "pong"}, body.History[1])
}

func TestReset(t *testing.T) {
	srv := newTestServer(t, echoFactory("pong"))

	req := httptest.NewRequest(http.MethodPost, "/api/send_message",
		strings.NewReader(`{"message":"ping"}`))
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Chat history reset"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	assert.Equal(t, "203.0.113.7", clientID(req))

	req.RemoteAddr = "no-port-here"
	assert.Equal(t, "no-port-here", clientID(req))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := chain(panicky, recoveryMiddleware(log.NewNop()), loggingMiddleware(log.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// TestWebSocketExchange runs the full duplex path over a real connection.
func TestWebSocketExchange(t *testing.T) {
	srv := newTestServer(t, echoFactory("4"))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/c1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var welcome gateway.Frame
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, config.DefaultWelcomeMessage, welcome.Message)
	assert.Equal(t, gateway.SenderBot, welcome.Sender)

	require.NoError(t, conn.WriteJSON(gateway.Frame{Message: "what is 2+2?"}))

	var reply gateway.Frame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "4", reply.Message)
	assert.Equal(t, gateway.SenderBot, reply.Sender)
}
