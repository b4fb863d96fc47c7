package publish

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"
)

// Writer is a dry-run publisher that prints "topic payload" lines. Binary
// payloads such as CBOR are printed as hex.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Publish implements the gateway publisher contract.
func (w *Writer) Publish(topic string, payload []byte) error {
	body := string(payload)
	if !utf8.Valid(payload) {
		body = hex.EncodeToString(payload)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.w, "%s %s\n", topic, body); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}
