package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/options"
)

// ErrInvalidLine marks input that does not describe an advertisement.
var ErrInvalidLine = errors.New("invalid advertisement line")

// Source feeds service-data advertisements to out until it is exhausted or
// ctx is cancelled. Sources never close out.
type Source interface {
	Run(ctx context.Context, out chan<- frame.ServiceData) error
}

// ParseLine parses "[address] <service> <payload-hex>". The service may be
// a full UUID or a short code.
func ParseLine(line string) (frame.ServiceData, error) {
	fields := strings.Fields(line)
	var ad frame.ServiceData
	switch len(fields) {
	case 2:
	case 3:
		ad.Address = fields[0]
		fields = fields[1:]
	default:
		return frame.ServiceData{}, fmt.Errorf("%w: expected 2 or 3 fields, got %d", ErrInvalidLine, len(fields))
	}
	service, err := options.ParseService(fields[0])
	if err != nil {
		return frame.ServiceData{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	payload, err := frame.DecodeHex(fields[1])
	if err != nil {
		return frame.ServiceData{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	ad.Service = service
	ad.Payload = payload
	return ad, nil
}

// Lines reads one advertisement per line. Blank lines and lines starting
// with '#' are ignored; malformed lines are logged and skipped.
type Lines struct {
	r   io.Reader
	log *logrus.Entry
}

// NewLines returns a line source over r.
func NewLines(r io.Reader, log *logrus.Entry) *Lines {
	return &Lines{r: r, log: log}
}

// Run implements Source. It returns nil at end of input.
func (l *Lines) Run(ctx context.Context, out chan<- frame.ServiceData) error {
	scanner := bufio.NewScanner(l.r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ad, err := ParseLine(line)
		if err != nil {
			l.log.WithError(err).WithField("line", lineNo).Warn("skipping advertisement")
			continue
		}
		select {
		case out <- ad:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read advertisements: %w", err)
	}
	return nil
}

// Message is the JSON document a BLE bridge publishes per advertisement.
type Message struct {
	Address string `json:"address"`
	Service string `json:"service"`
	// Data is the hex encoded service-data payload.
	Data string `json:"data"`
}

// ParseMessage converts a bridge message into a ServiceData value.
func ParseMessage(raw []byte) (frame.ServiceData, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return frame.ServiceData{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	service, err := options.ParseService(msg.Service)
	if err != nil {
		return frame.ServiceData{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	payload, err := frame.DecodeHex(msg.Data)
	if err != nil {
		return frame.ServiceData{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	return frame.ServiceData{Address: msg.Address, Service: service, Payload: payload}, nil
}

// Subscriber is the part of the MQTT client the topic source needs.
type Subscriber interface {
	Subscribe(topic string, handler func([]byte)) error
	Unsubscribe(topic string) error
}

// Topic receives advertisements published by an external bridge.
type Topic struct {
	sub   Subscriber
	topic string
	log   *logrus.Entry
}

// NewTopic returns a source subscribed to topic once Run is called.
func NewTopic(sub Subscriber, topic string, log *logrus.Entry) *Topic {
	return &Topic{sub: sub, topic: topic, log: log}
}

// Run implements Source. It blocks until ctx is cancelled.
func (t *Topic) Run(ctx context.Context, out chan<- frame.ServiceData) error {
	err := t.sub.Subscribe(t.topic, func(raw []byte) {
		ad, err := ParseMessage(raw)
		if err != nil {
			t.log.WithError(err).WithField("topic", t.topic).Warn("skipping advertisement")
			return
		}
		select {
		case out <- ad:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	if err := t.sub.Unsubscribe(t.topic); err != nil {
		t.log.WithError(err).Warn("unsubscribe failed")
	}
	return ctx.Err()
}
