// Package encoding serializes readings for publishing. Both formats are
// untagged: a reading carries only its own field names and Empty becomes
// an empty map.
package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/bitkill/hello-blea/internal/reading"
)

// ErrUnknownFormat is returned by Lookup for unsupported format names.
var ErrUnknownFormat = errors.New("unknown encoding format")

const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Encoder turns a reading into a wire payload.
type Encoder interface {
	Format() string
	ContentType() string
	Encode(r reading.Reading) ([]byte, error)
}

// Lookup returns the encoder for a format name. An empty name selects JSON.
func Lookup(format string) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return JSON{}, nil
	case FormatCBOR:
		return newCBOR()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON encodes readings as compact JSON objects.
type JSON struct{}

func (JSON) Format() string      { return FormatJSON }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Encode(r reading.Reading) ([]byte, error) {
	if r == nil {
		r = reading.Empty{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s reading as json: %w", r.Kind(), err)
	}
	return data, nil
}

// CBOR encodes readings as CBOR maps (RFC 8949) with text keys.
type CBOR struct {
	mode cbor.EncMode
}

func newCBOR() (CBOR, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return CBOR{}, fmt.Errorf("cbor encoder: %w", err)
	}
	return CBOR{mode: mode}, nil
}

func (CBOR) Format() string      { return FormatCBOR }
func (CBOR) ContentType() string { return "application/cbor" }

func (c CBOR) Encode(r reading.Reading) ([]byte, error) {
	if r == nil {
		r = reading.Empty{}
	}
	mode := c.mode
	if mode == nil {
		var err error
		if mode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
			return nil, fmt.Errorf("cbor encoder: %w", err)
		}
	}
	data, err := mode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s reading as cbor: %w", r.Kind(), err)
	}
	return data, nil
}
