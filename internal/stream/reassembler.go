package stream

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// KindTextChunk is the record kind that carries reply text.
const KindTextChunk = "TextChunk"

// ErrTooManyMalformed aborts a stream once the configured number of
// consecutive malformed records is reached.
var ErrTooManyMalformed = errors.New("too many consecutive malformed records")

type EventKind int

const (
	TextChunk EventKind = iota
	Ignored
)

func (k EventKind) String() string {
	if k == TextChunk {
		return "text-chunk"
	}
	return "ignored"
}

type Reason string

const (
	ReasonMalformed   Reason = "malformed"
	ReasonUnknownKind Reason = "unknown-kind"
)

// Event is one classified record.
type Event struct {
	Kind   EventKind
	Text   string // payload of a TextChunk
	Reason Reason // why a record was Ignored
	Record string // the trimmed record
}

// Classify inspects one trimmed, non-empty record.
func Classify(record string) Event {
	if !gjson.Valid(record) {
		return Event{Kind: Ignored, Reason: ReasonMalformed, Record: record}
	}

	msg := gjson.Get(record, "data.message")
	if msg.Get("type").String() != KindTextChunk {
		return Event{Kind: Ignored, Reason: ReasonUnknownKind, Record: record}
	}

	var text string
	if payload := msg.Get("message"); payload.Type == gjson.String {
		text = payload.String()
	}
	return Event{Kind: TextChunk, Text: text, Record: record}
}

type Option func(*Reassembler)

// WithMaxMalformed bounds consecutive malformed records; zero means no bound.
func WithMaxMalformed(n int) Option {
	return func(r *Reassembler) {
		r.maxMalformed = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reassembler) {
		r.logger = logger
	}
}

// Reassembler turns arbitrarily split byte chunks into classified records.
type Reassembler struct {
	dec          *Decoder
	pending      string
	maxMalformed int
	malformedRun int
	logger       zerolog.Logger
}

func NewReassembler(opts ...Option) *Reassembler {
	r := &Reassembler{
		dec:    NewDecoder(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Feed consumes one chunk and returns the events for every line it completed.
// A malformed line is reported once and never re-buffered.
func (r *Reassembler) Feed(chunk []byte) ([]Event, error) {
	r.pending += r.dec.Decode(chunk)

	lines := strings.Split(r.pending, "\n")
	r.pending = lines[len(lines)-1]

	var events []Event
	for _, line := range lines[:len(lines)-1] {
		record := strings.TrimSpace(line)
		if record == "" {
			continue
		}

		ev := Classify(record)
		switch {
		case ev.Kind == Ignored && ev.Reason == ReasonMalformed:
			r.malformedRun++
			r.logger.Warn().
				Str("record", preview(record)).
				Int("consecutive", r.malformedRun).
				Msg("skipping malformed JSON line")
		case ev.Kind == Ignored:
			r.malformedRun = 0
			r.logger.Debug().Str("record", preview(record)).Msg("ignoring record of unknown kind")
		default:
			r.malformedRun = 0
		}
		events = append(events, ev)

		if r.maxMalformed > 0 && r.malformedRun >= r.maxMalformed {
			return events, errors.Wrapf(ErrTooManyMalformed, "%d in a row", r.malformedRun)
		}
	}
	return events, nil
}

// Close ends the stream and returns the unterminated tail it discarded.
func (r *Reassembler) Close() string {
	dropped := r.pending + r.dec.Flush()
	r.pending = ""
	return dropped
}

func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
