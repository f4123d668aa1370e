package stream

import (
	"io"

	"github.com/pkg/errors"
)

const readSize = 4096

// Reader yields classified events from an NDJSON body. Use it like a scanner:
//
//	for rd.Next() {
//		ev := rd.Event()
//	}
//	if err := rd.Err(); err != nil { ... }
type Reader struct {
	src   io.Reader
	r     *Reassembler
	buf   []byte
	queue []Event
	cur   Event
	err   error
	done  bool
}

func NewReader(src io.Reader, opts ...Option) *Reader {
	return &Reader{
		src: src,
		r:   NewReassembler(opts...),
		buf: make([]byte, readSize),
	}
}

// Next advances to the next event, reading from the source as needed.
// It returns false at end of input or after a read error.
func (rd *Reader) Next() bool {
	for len(rd.queue) == 0 {
		if rd.done {
			return false
		}
		rd.fill()
	}
	rd.cur = rd.queue[0]
	rd.queue = rd.queue[1:]
	return true
}

func (rd *Reader) fill() {
	n, err := rd.src.Read(rd.buf)
	if n > 0 {
		events, ferr := rd.r.Feed(rd.buf[:n])
		rd.queue = append(rd.queue, events...)
		if ferr != nil {
			rd.finish(ferr)
			return
		}
	}

	switch {
	case err == io.EOF:
		rd.finish(nil)
	case err != nil:
		rd.r.logger.Error().Err(err).Msg("error reading stream chunk")
		rd.finish(errors.Wrap(err, "read stream"))
	}
}

func (rd *Reader) finish(err error) {
	rd.done = true
	rd.err = err
	if dropped := rd.r.Close(); dropped != "" {
		rd.r.logger.Debug().
			Str("fragment", preview(dropped)).
			Msg("discarding unterminated final line")
	}
}

// Event returns the event Next advanced to.
func (rd *Reader) Event() Event {
	return rd.cur
}

// Err returns the error that ended iteration, or nil at a clean end of input.
func (rd *Reader) Err() error {
	return rd.err
}
