package stream

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder is a streaming UTF-8 decoder. Invalid bytes become U+FFFD, but a
// code point split across calls is held back until its remaining bytes
// arrive.
type Decoder struct {
	t     transform.Transformer
	carry []byte
}

func NewDecoder() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode returns the text decodable from the carried bytes plus p.
func (d *Decoder) Decode(p []byte) string {
	return d.decode(p, false)
}

// Flush decodes whatever is still carried, replacing a truncated sequence.
func (d *Decoder) Flush() string {
	return d.decode(nil, true)
}

// Pending reports how many bytes are held for the next call.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

func (d *Decoder) decode(p []byte, atEOF bool) string {
	src := p
	if len(d.carry) > 0 {
		src = append(d.carry, p...)
		d.carry = nil
	}
	if len(src) == 0 {
		return ""
	}

	// Each invalid byte expands to a three-byte replacement character.
	dst := make([]byte, 3*len(src)+4)
	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil:
			return string(out)
		case transform.ErrShortDst:
			if nSrc == 0 && nDst == 0 {
				dst = make([]byte, 2*len(dst))
			}
			continue
		case transform.ErrShortSrc:
			d.carry = append([]byte(nil), src...)
			return string(out)
		default:
			// The UTF-8 decoder never fails hard; drop the rest rather than loop.
			return string(out)
		}
	}
}
