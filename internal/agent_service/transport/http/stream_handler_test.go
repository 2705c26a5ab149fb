package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/notifier"
	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

type fakeSubscription struct {
	ch chan domain.ChangeEvent
}

func (s *fakeSubscription) Events() <-chan domain.ChangeEvent { return s.ch }
func (s *fakeSubscription) Close() error                      { return nil }

type fakeWriter struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (w *fakeWriter) Write(_ context.Context, msgType websocket.MessageType, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if msgType != websocket.MessageText {
		return errors.New("unexpected message type")
	}
	w.frames = append(w.frames, data)
	return nil
}

func TestStreamChanges_WritesEachEventUntilClosed(t *testing.T) {
	sub := &fakeSubscription{ch: make(chan domain.ChangeEvent, 2)}
	sub.ch <- domain.ChangeEvent{ID: uuid.New(), Table: domain.AgentsTable, Type: domain.ChangeInsert, UserID: "u1"}
	sub.ch <- domain.ChangeEvent{ID: uuid.New(), Table: domain.AgentsTable, Type: domain.ChangeDelete, UserID: "u1"}
	close(sub.ch)

	w := &fakeWriter{}
	require.NoError(t, streamChanges(context.Background(), sub, w))
	require.Len(t, w.frames, 2)

	var evt domain.ChangeEvent
	require.NoError(t, json.Unmarshal(w.frames[1], &evt))
	assert.Equal(t, domain.ChangeDelete, evt.Type)
}

func TestStreamChanges_StopsOnContextAndWriteError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := streamChanges(ctx, &fakeSubscription{ch: make(chan domain.ChangeEvent)}, &fakeWriter{})
	assert.ErrorIs(t, err, context.Canceled)

	sub := &fakeSubscription{ch: make(chan domain.ChangeEvent, 1)}
	sub.ch <- domain.ChangeEvent{Type: domain.ChangeInsert}
	err = streamChanges(context.Background(), sub, &fakeWriter{err: errors.New("broken pipe")})
	assert.EqualError(t, err, "broken pipe")
}

func TestStreamHandler_RequiresUser(t *testing.T) {
	r := chi.NewRouter()
	NewStreamHandler(notifier.NewMemoryNotifier(testLogger()), testLogger()).RegisterRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/agents/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStreamHandler_WebsocketRoundTrip(t *testing.T) {
	n := notifier.NewMemoryNotifier(testLogger())
	r := chi.NewRouter()
	NewStreamHandler(n, testLogger()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/agents/stream?user_id=u1"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return n.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Another user's change must not reach this stream.
	require.NoError(t, n.Publish(ctx, domain.ChangeEvent{ID: uuid.New(), Table: domain.AgentsTable, Type: domain.ChangeInsert, UserID: "u2"}))
	want := domain.ChangeEvent{
		ID:     uuid.New(),
		Table:  domain.AgentsTable,
		Type:   domain.ChangeUpdate,
		UserID: "u1",
		Record: &domain.AgentRecord{UserID: "u1", RetellID: "A1", Questions: []string{}},
	}
	require.NoError(t, n.Publish(ctx, want))

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var got domain.ChangeEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, domain.ChangeUpdate, got.Type)
	require.NotNil(t, got.Record)
	assert.Equal(t, "A1", got.Record.RetellID)

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	assert.Eventually(t, func() bool { return n.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
