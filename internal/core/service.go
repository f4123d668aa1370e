package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/session"
	"github.com/Rorical/RoriChat/internal/transport"
)

var (
	ErrSendInFlight  = errors.New("a message is already being sent")
	ErrNotConfigured = errors.New("no agent endpoint configured")
	ErrReplyTimeout  = errors.New("agent stopped responding")
)

// Sender performs one request/response exchange with the agent endpoint.
type Sender interface {
	Send(ctx context.Context, text string, sink transport.Sink) error
}

type ChatService struct {
	config   *config.Config
	state    *ChatState
	session  *session.Manager
	sender   Sender // nil when the active profile has no endpoint
	eventBus *eventbus.EventBus
	timeout  time.Duration
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	inFlight   atomic.Bool
	sendMu     sync.Mutex
	sendCancel func()

	chunkObserver func(string)
}

// NewChatService creates a ChatService regardless of config validity so the
// UI always has a state to render. eb may be nil for non-interactive use.
func NewChatService(cfg *config.Config, eb *eventbus.EventBus, logger zerolog.Logger) (*ChatService, error) {
	profile := cfg.Current()
	logger = logger.With().Str("component", "core").Str("profile", cfg.ActiveProfile).Logger()

	mode, err := transport.ParseMode(profile.Mode)
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(session.Headers{
		Init:        profile.InitHeader,
		SessionSend: profile.SessionSendHeader,
		SessionRecv: profile.SessionHeader,
	}, session.WithLogger(logger.With().Str("component", "session").Logger()))

	var sender Sender
	if cfg.IsValid() {
		sender = transport.NewDispatcher(profile.URL(), sess,
			transport.WithMode(mode),
			transport.WithMaxMalformed(profile.MaxMalformedLines),
			transport.WithLogger(logger.With().Str("component", "transport").Logger()),
		)
	}

	return newChatService(cfg, NewChatState(profile.Greeting), sess, sender, eb, logger), nil
}

func newChatService(cfg *config.Config, state *ChatState, sess *session.Manager, sender Sender, eb *eventbus.EventBus, logger zerolog.Logger) *ChatService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		config:   cfg,
		state:    state,
		session:  sess,
		sender:   sender,
		eventBus: eb,
		timeout:  cfg.GetTimeout(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the core logic in a goroutine
func (cs *ChatService) Start() {
	go cs.eventLoop()
}

// Stop cancels any send in flight and ends the event loop.
func (cs *ChatService) Stop() {
	cs.cancel()
}

// Run processes UI events until ctx ends or the bus closes.
func (cs *ChatService) Run(ctx context.Context) error {
	// Send initial state to UI immediately
	cs.pushStateToUI()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-cs.ctx.Done():
			return nil
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return nil
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) eventLoop() {
	_ = cs.Run(cs.ctx)
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		if cs.IsProcessing() {
			cs.notify("Still waiting for the agent; press Esc to cancel")
			return
		}
		go func() {
			if err := cs.Send(cs.ctx, e.Message); errors.Is(err, ErrSendInFlight) {
				cs.notify("Still waiting for the agent; press Esc to cancel")
			}
		}()
	case eventbus.CancelEvent:
		cs.Cancel()
	case eventbus.ResetSessionEvent:
		cs.ResetSession()
	}
}

// SetChunkObserver registers fn to see every applied text chunk.
func (cs *ChatService) SetChunkObserver(fn func(string)) {
	cs.chunkObserver = fn
}

// Send runs one complete send: user message, request, reply, settlement.
// It blocks until the send settles or is cancelled. Only one send may be in
// flight; a concurrent call returns ErrSendInFlight without touching state.
func (cs *ChatService) Send(ctx context.Context, text string) error {
	if !cs.inFlight.CompareAndSwap(false, true) {
		return ErrSendInFlight
	}
	defer cs.inFlight.Store(false)

	cs.state.Submit(text)
	cs.pushStateToUI()

	if cs.sender == nil {
		cs.state.Settle(ErrNotConfigured)
		cs.pushStateToUI()
		return ErrNotConfigured
	}

	sendCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	cs.setSendCancel(func() { cancel(nil) })
	defer cs.setSendCancel(nil)

	// The timeout bounds silence, not the whole reply: it covers the wait for
	// the response and each gap between chunks.
	sink := conversationSink{cs: cs}
	if cs.timeout > 0 {
		sink.idle = time.AfterFunc(cs.timeout, func() { cancel(ErrReplyTimeout) })
		defer sink.idle.Stop()
	}

	started := time.Now()
	err := cs.sender.Send(sendCtx, text, sink)
	logger := cs.logger.With().Dur("elapsed", time.Since(started)).Logger()

	if err != nil {
		switch cause := context.Cause(sendCtx); {
		case errors.Is(cause, ErrReplyTimeout):
			logger.Debug().Err(err).Msg("send interrupted by idle timeout")
			err = errors.Wrapf(ErrReplyTimeout, "no reply activity within %s", cs.timeout)
		case errors.Is(cause, context.Canceled):
			cs.state.Abort()
			cs.pushStateToUI()
			logger.Info().Msg("send cancelled")
			return errors.Wrap(context.Canceled, "send cancelled")
		case errors.Is(cause, context.DeadlineExceeded):
			err = errors.Wrap(err, "send deadline exceeded")
		}
	}

	cs.state.Settle(err)
	cs.pushStateToUI()

	if err != nil {
		logger.Error().Err(err).Msg("send failed")
		return err
	}
	logger.Debug().Msg("send succeeded")
	return nil
}

// Cancel abandons the send in flight, if any.
func (cs *ChatService) Cancel() {
	cs.sendMu.Lock()
	defer cs.sendMu.Unlock()
	if cs.sendCancel != nil {
		cs.sendCancel()
	}
}

func (cs *ChatService) setSendCancel(cancel func()) {
	cs.sendMu.Lock()
	defer cs.sendMu.Unlock()
	cs.sendCancel = cancel
}

// ResetSession forgets the session identifier so the next send starts over.
func (cs *ChatService) ResetSession() {
	cs.session.Reset()
	cs.state.AddSystemNote("Session reset. The next message starts a new conversation.")
	cs.logger.Info().Msg("session reset")
	cs.pushStateToUI()
}

func (cs *ChatService) Snapshot() models.ConversationState {
	return cs.state.Snapshot()
}

func (cs *ChatService) SessionID() (string, bool) {
	return cs.session.SessionID()
}

func (cs *ChatService) IsProcessing() bool {
	return cs.inFlight.Load() || cs.state.IsProcessing()
}

func (cs *ChatService) IsReady() bool {
	return cs.config.IsValid()
}

func (cs *ChatService) pushStateToUI() {
	if cs.eventBus == nil {
		return
	}
	_, active := cs.session.SessionID()
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		State:         cs.state.Snapshot(),
		SessionActive: active,
	}); err != nil {
		cs.logger.Warn().Err(err).Msg("error sending state to UI")
	}
}

func (cs *ChatService) notify(text string) {
	if cs.eventBus == nil {
		return
	}
	if err := cs.eventBus.SendToUI(eventbus.NoticeEvent{Text: text}); err != nil {
		cs.logger.Warn().Err(err).Msg("error sending notice to UI")
	}
}

// conversationSink applies transport callbacks to the state machine.
type conversationSink struct {
	cs   *ChatService
	idle *time.Timer
}

func (s conversationSink) touch() {
	if s.idle != nil {
		s.idle.Reset(s.cs.timeout)
	}
}

func (s conversationSink) ResponseStarted() {
	s.touch()
	if s.cs.state.ResponseStarted() {
		s.cs.pushStateToUI()
	}
}

func (s conversationSink) ChunkReceived(text string) {
	s.touch()
	if !s.cs.state.ChunkReceived(text) {
		s.cs.logger.Debug().Msg("dropping chunk with no open placeholder")
		return
	}
	if s.cs.chunkObserver != nil {
		s.cs.chunkObserver(text)
	}
	s.cs.pushStateToUI()
}
