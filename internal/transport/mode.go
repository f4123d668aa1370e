package transport

import (
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how a response body is consumed.
type Mode int

const (
	Streaming Mode = iota
	SingleShot
	// Auto picks Streaming or SingleShot from the response Content-Type.
	Auto
)

func (m Mode) String() string {
	switch m {
	case Streaming:
		return "streaming"
	case SingleShot:
		return "single-shot"
	case Auto:
		return "auto"
	}
	return "unknown"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "streaming", "stream":
		return Streaming, nil
	case "single-shot", "singleshot", "single":
		return SingleShot, nil
	case "auto":
		return Auto, nil
	}
	return Streaming, errors.Errorf("unknown response mode %q", s)
}

var streamingMediaTypes = map[string]bool{
	"application/x-ndjson": true,
	"application/ndjson":   true,
	"application/jsonl":    true,
	"application/x-jsonl":  true,
	"text/event-stream":    true,
}

// detectMode maps a response onto a concrete mode for Auto.
func detectMode(resp *http.Response) Mode {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return SingleShot
	}
	if streamingMediaTypes[mediaType] {
		return Streaming
	}
	if mediaType == "text/plain" && resp.ContentLength < 0 {
		return Streaming
	}
	return SingleShot
}
