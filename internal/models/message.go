package models

type Sender int

const (
	User Sender = iota
	Agent
	System
)

func (s Sender) String() string {
	switch s {
	case User:
		return "You"
	case Agent:
		return "Agent"
	case System:
		return "System"
	}
	return "unknown"
}

type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Message is one transcript entry. Only the trailing agent placeholder of an
// in-flight send is ever mutated after insertion.
type Message struct {
	Content   string
	Sender    Sender
	Direction Direction
	Error     bool // System entries produced by a failed send
}
