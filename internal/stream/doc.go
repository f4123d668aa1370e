// Package stream turns a response body of newline-delimited JSON records into
// classified events.
//
// The pipeline is bytes → text → lines → records → events:
//
//   - Decoder decodes UTF-8 incrementally, carrying an incomplete trailing
//     code point over to the next chunk.
//   - Reassembler buffers text until a line terminator arrives, trims each
//     complete line and classifies it.
//   - Reader pulls chunks from an io.Reader and exposes the events lazily
//     through Next, Event and Err.
//
// Records of the form {"data":{"message":{"type":"TextChunk","message":"..."}}}
// become TextChunk events. Everything else that is non-empty becomes an
// Ignored event; blank lines are keep-alives and produce nothing.
package stream
