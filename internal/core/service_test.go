package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/session"
	"github.com/Rorical/RoriChat/internal/transport"
)

func record(s string) string {
	return fmt.Sprintf(`{"data":{"message":{"type":"TextChunk","message":%q}}}`, s)
}

func newService(t *testing.T, profile config.Profile, eb *eventbus.EventBus) *ChatService {
	t.Helper()
	cfg, err := config.NewConfig(map[string]config.Profile{"test": profile}, "test")
	require.NoError(t, err)
	cs, err := NewChatService(cfg, eb, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(cs.Stop)
	return cs
}

func lastMessage(t *testing.T, cs *ChatService) models.Message {
	t.Helper()
	msg, ok := cs.Snapshot().LastMessage()
	require.True(t, ok)
	return msg
}

func TestSend_StreamingReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprint(w, record("Hel")+"\n"+record("lo")+"\n")
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, nil)
	var observed []string
	cs.SetChunkObserver(func(s string) { observed = append(observed, s) })

	require.NoError(t, cs.Send(context.Background(), "hi"))

	snap := cs.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "hi", snap.Messages[0].Content)
	assert.Equal(t, models.Agent, snap.Messages[1].Sender)
	assert.Equal(t, "Hello", snap.Messages[1].Content)
	assert.Equal(t, models.Succeeded, snap.Status)
	assert.Equal(t, []string{"Hel", "lo"}, observed)
}

func TestSend_MalformedLineDoesNotAffectConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json\n"+record("ok")+"\n")
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, nil)
	require.NoError(t, cs.Send(context.Background(), "hi"))

	snap := cs.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "ok", snap.Messages[1].Content)
	assert.Equal(t, models.Succeeded, snap.Status)
}

func TestSend_SingleShot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":"Hi there"}`)
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL, Mode: "single-shot"}, nil)
	var observed []string
	cs.SetChunkObserver(func(s string) { observed = append(observed, s) })

	require.NoError(t, cs.Send(context.Background(), "hi"))

	assert.Equal(t, []string{"Hi there"}, observed)
	assert.Equal(t, "Hi there", lastMessage(t, cs).Content)
	assert.Equal(t, models.Succeeded, cs.Snapshot().Status)
}

func TestSend_UnauthorizedClearsSession(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(session.DefaultSessionHeader, "sess-1")
			fmt.Fprint(w, record("first")+"\n")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, nil)
	require.NoError(t, cs.Send(context.Background(), "one"))
	_, held := cs.SessionID()
	require.True(t, held)

	err := cs.Send(context.Background(), "two")
	require.Error(t, err)
	assert.True(t, transport.IsUnauthorized(err))

	_, held = cs.SessionID()
	assert.False(t, held)

	snap := cs.Snapshot()
	assert.Equal(t, models.Failed, snap.Status)
	last := lastMessage(t, cs)
	assert.True(t, last.Error)
	assert.Contains(t, last.Content, "401")
	// No placeholder is opened for a failed status.
	assert.Equal(t, "two", snap.Messages[len(snap.Messages)-2].Content)
}

func TestSend_SessionContinues(t *testing.T) {
	second := make(chan http.Header, 1)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(session.DefaultSessionHeader, "abc123")
		} else {
			second <- r.Header.Clone()
		}
		fmt.Fprint(w, record("ok")+"\n")
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, nil)
	require.NoError(t, cs.Send(context.Background(), "one"))

	id, held := cs.SessionID()
	require.True(t, held)
	assert.Equal(t, "abc123", id)

	require.NoError(t, cs.Send(context.Background(), "two"))
	headers := <-second
	assert.Equal(t, "abc123", headers.Get(session.DefaultSessionHeader))
	assert.Empty(t, headers.Get(session.DefaultInitHeader))
}

func TestSend_NotConfigured(t *testing.T) {
	cs := newService(t, config.Profile{}, nil)
	assert.False(t, cs.IsReady())

	err := cs.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)

	snap := cs.Snapshot()
	assert.Equal(t, models.Failed, snap.Status)
	assert.Equal(t, "Error: "+ErrNotConfigured.Error(), lastMessage(t, cs).Content)
}

// blockingSender holds a send open until released.
type blockingSender struct {
	entered chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, text string, sink transport.Sink) error {
	sink.ResponseStarted()
	sink.ChunkReceived("partial")
	close(b.entered)
	<-ctx.Done()
	return ctx.Err()
}

func newBlockingService(t *testing.T, timeout time.Duration) (*ChatService, *blockingSender) {
	t.Helper()
	cfg, err := config.NewConfig(map[string]config.Profile{
		"test": {Endpoint: "http://unused.local", Timeout: timeout},
	}, "test")
	require.NoError(t, err)
	sender := &blockingSender{entered: make(chan struct{})}
	cs := newChatService(cfg, NewChatState(""), session.NewManager(session.Headers{}), sender, nil, zerolog.Nop())
	t.Cleanup(cs.Stop)
	return cs, sender
}

func TestSend_InFlightGuard(t *testing.T) {
	cs, sender := newBlockingService(t, time.Minute)

	done := make(chan error, 1)
	go func() { done <- cs.Send(context.Background(), "first") }()
	<-sender.entered

	assert.True(t, cs.IsProcessing())
	before := cs.Snapshot()
	assert.ErrorIs(t, cs.Send(context.Background(), "second"), ErrSendInFlight)
	assert.Equal(t, before, cs.Snapshot(), "rejected send leaves state untouched")

	cs.Cancel()
	require.Error(t, <-done)
}

func TestSend_CancelReturnsToIdle(t *testing.T) {
	cs, sender := newBlockingService(t, time.Minute)

	done := make(chan error, 1)
	go func() { done <- cs.Send(context.Background(), "hi") }()
	<-sender.entered
	cs.Cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	snap := cs.Snapshot()
	assert.Equal(t, models.Idle, snap.Status)
	assert.Equal(t, "partial", lastMessage(t, cs).Content)
	assert.False(t, cs.IsProcessing())
}

func TestSend_TimeoutFails(t *testing.T) {
	cs, _ := newBlockingService(t, 20*time.Millisecond)

	err := cs.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReplyTimeout))

	snap := cs.Snapshot()
	assert.Equal(t, models.Failed, snap.Status)
	assert.Equal(t, "partial", snap.Messages[1].Content)
	assert.Contains(t, lastMessage(t, cs).Content, "no reply activity within 20ms")
}

func TestSend_SteadyStreamOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			fmt.Fprintln(w, record(strconv.Itoa(i)))
			flusher.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL, Timeout: 150 * time.Millisecond}, nil)
	require.NoError(t, cs.Send(context.Background(), "hi"))

	snap := cs.Snapshot()
	assert.Equal(t, models.Succeeded, snap.Status)
	assert.Equal(t, "012345", lastMessage(t, cs).Content)
}

func TestSend_SilentServerTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cs := newService(t, config.Profile{Endpoint: srv.URL, Timeout: 30 * time.Millisecond}, nil)
	err := cs.Send(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrReplyTimeout))

	snap := cs.Snapshot()
	assert.Equal(t, models.Failed, snap.Status)
	require.Len(t, snap.Messages, 2, "no placeholder before the response starts")
	assert.True(t, snap.Messages[1].Error)
}

func TestResetSession(t *testing.T) {
	eb := eventbus.NewEventBus()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(session.DefaultSessionHeader, "abc")
		fmt.Fprint(w, record("ok")+"\n")
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, eb)
	require.NoError(t, cs.Send(context.Background(), "hi"))
	cs.ResetSession()

	_, held := cs.SessionID()
	assert.False(t, held)
	assert.Equal(t, models.System, lastMessage(t, cs).Sender)

	var latest eventbus.StateUpdateEvent
	for len(eb.CoreToUI()) > 0 {
		if ev, ok := (<-eb.CoreToUI()).(eventbus.StateUpdateEvent); ok {
			latest = ev
		}
	}
	assert.False(t, latest.SessionActive)
	assert.Equal(t, cs.Snapshot(), latest.State)
}

func TestEventLoop_SendAndNotice(t *testing.T) {
	eb := eventbus.NewEventBus()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, record("pong")+"\n")
	}))
	defer srv.Close()

	cs := newService(t, config.Profile{Endpoint: srv.URL}, eb)
	cs.Start()
	require.NoError(t, eb.SendToCore(eventbus.SendMessageEvent{Message: "ping"}))

	require.Eventually(t, func() bool {
		return cs.Snapshot().Status == models.Succeeded
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "pong", lastMessage(t, cs).Content)
}
