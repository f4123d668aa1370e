package core

import (
	"sync"

	"github.com/Rorical/RoriChat/internal/models"
)

const noPlaceholder = -1

// ChatState is the conversation state machine. It owns the transcript and
// the send status; readers outside core only ever see snapshots.
//
//	Idle → Loading → Succeeded | Failed, and back to Loading on the next send.
type ChatState struct {
	mu        sync.RWMutex
	messages  []models.Message
	status    models.Status
	lastError string
	// index of the agent placeholder open for the current send
	placeholder int
	started     bool
}

func NewChatState(greeting string) *ChatState {
	cs := &ChatState{
		messages:    make([]models.Message, 0),
		status:      models.Idle,
		placeholder: noPlaceholder,
	}
	if greeting != "" {
		cs.messages = append(cs.messages, models.Message{
			Content:   greeting,
			Sender:    models.Agent,
			Direction: models.Incoming,
		})
	}
	return cs
}

// Submit records the user's message and enters Loading before any I/O.
func (cs *ChatState) Submit(text string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.messages = append(cs.messages, models.Message{
		Content:   text,
		Sender:    models.User,
		Direction: models.Outgoing,
	})
	cs.status = models.Loading
	cs.lastError = ""
	cs.placeholder = noPlaceholder
	cs.started = false
}

// ResponseStarted opens the empty agent placeholder for the current send.
// Only the first call per send has an effect.
func (cs *ChatState) ResponseStarted() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.status != models.Loading || cs.started {
		return false
	}
	cs.messages = append(cs.messages, models.Message{
		Sender:    models.Agent,
		Direction: models.Incoming,
	})
	cs.placeholder = len(cs.messages) - 1
	cs.started = true
	return true
}

// ChunkReceived appends text to the trailing incoming message while it is the
// open placeholder. Anything else is a no-op.
func (cs *ChatState) ChunkReceived(text string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	last := len(cs.messages) - 1
	if last < 0 || cs.placeholder != last || cs.messages[last].Direction != models.Incoming {
		return false
	}
	cs.messages[last].Content += text
	return true
}

// Settle ends the current send. A nil error means success; otherwise the
// failure is recorded and a permanent System entry is appended. Settle only
// has an effect while Loading, so a send settles at most once.
func (cs *ChatState) Settle(err error) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.status != models.Loading {
		return false
	}
	cs.placeholder = noPlaceholder

	if err == nil {
		cs.status = models.Succeeded
		cs.lastError = ""
		return true
	}

	cs.status = models.Failed
	cs.lastError = err.Error()
	cs.messages = append(cs.messages, models.Message{
		Content:   "Error: " + cs.lastError,
		Sender:    models.System,
		Direction: models.Incoming,
		Error:     true,
	})
	return true
}

// Abort leaves Loading without settling, keeping whatever already streamed.
func (cs *ChatState) Abort() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.status != models.Loading {
		return false
	}
	cs.status = models.Idle
	cs.placeholder = noPlaceholder
	return true
}

// AddSystemNote appends an informational System entry.
func (cs *ChatState) AddSystemNote(text string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.messages = append(cs.messages, models.Message{
		Content:   text,
		Sender:    models.System,
		Direction: models.Incoming,
	})
	// A note closes any open placeholder; late chunks must not land in it.
	cs.placeholder = noPlaceholder
}

func (cs *ChatState) Status() models.Status {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.status
}

func (cs *ChatState) IsProcessing() bool {
	return cs.Status() == models.Loading
}

func (cs *ChatState) GetLastError() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

// Snapshot returns a copy that later mutations cannot affect.
func (cs *ChatState) Snapshot() models.ConversationState {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	messages := make([]models.Message, len(cs.messages))
	copy(messages, cs.messages)
	return models.ConversationState{
		Messages:  messages,
		Status:    cs.status,
		LastError: cs.lastError,
	}
}
