package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/Rorical/RoriChat/internal/stream"
)

// Sink receives the reply as it arrives. ResponseStarted is called once per
// successful response, before any ChunkReceived.
type Sink interface {
	ResponseStarted()
	ChunkReceived(text string)
}

// responseHandler consumes a 2xx response body for one Mode.
type responseHandler interface {
	handle(ctx context.Context, resp *http.Response, sink Sink) error
}

type streamingHandler struct {
	logger       zerolog.Logger
	maxMalformed int
}

func (h streamingHandler) handle(ctx context.Context, resp *http.Response, sink Sink) error {
	sink.ResponseStarted()

	rd := stream.NewReader(resp.Body,
		stream.WithLogger(h.logger),
		stream.WithMaxMalformed(h.maxMalformed),
	)

	var chunks, ignored int
	for rd.Next() {
		ev := rd.Event()
		if ev.Kind != stream.TextChunk {
			ignored++
			continue
		}
		chunks++
		sink.ChunkReceived(ev.Text)
	}

	h.logger.Debug().Int("chunks", chunks).Int("ignored", ignored).Msg("stream finished")

	if err := rd.Err(); err != nil {
		return errors.Wrap(err, "reading response stream")
	}
	return nil
}

type singleShotHandler struct {
	logger zerolog.Logger
}

func (h singleShotHandler) handle(ctx context.Context, resp *http.Response, sink Sink) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}

	sink.ResponseStarted()
	sink.ChunkReceived(ExtractReply(raw))
	return nil
}

// ExtractReply reads the reply text out of a single-shot body. JSON bodies
// contribute their string "message" field, or nothing when it is absent;
// anything that is not JSON is returned verbatim.
func ExtractReply(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return string(raw)
	}
	if msg := gjson.GetBytes(raw, "message"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}
