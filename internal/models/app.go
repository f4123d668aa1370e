package models

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Conversation     ConversationState // Latest snapshot pushed by core
	SessionActive    bool              // Whether core currently holds a session identifier
	Status           string            // Status bar text
	Width            int               // Terminal width
	Height           int               // Terminal height
	ChatServiceReady bool              // Whether the active profile has an endpoint
}

// Loading reports whether a send is in flight.
func (m AppModel) Loading() bool {
	return m.Conversation.Status == Loading
}
