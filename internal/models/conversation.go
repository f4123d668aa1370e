package models

// Status tracks the lifecycle of the most recent send.
type Status int

const (
	Idle Status = iota
	Loading
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ConversationState is an immutable snapshot handed to readers outside core.
type ConversationState struct {
	Messages  []Message
	Status    Status
	LastError string // empty when the last send did not fail
}

// LastMessage returns the trailing message, if any.
func (c ConversationState) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
