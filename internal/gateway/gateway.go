package gateway

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/bitkill/hello-blea/internal/encoding"
	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/reading"
	"github.com/bitkill/hello-blea/internal/source"
	"github.com/bitkill/hello-blea/pkg/blea"
)

const unknownAddress = "unknown"

// Publisher delivers an encoded reading to topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Options tunes what the gateway publishes.
type Options struct {
	TopicPrefix string
	// PublishEmpty forwards Empty readings as "{}" instead of dropping them.
	PublishEmpty bool
}

// Stats counts gateway activity since start.
type Stats struct {
	Received  uint64
	Published uint64
	Empty     uint64
	Failed    uint64
}

// Gateway decodes advertisements and publishes the resulting readings.
type Gateway struct {
	pub  Publisher
	enc  encoding.Encoder
	opts Options
	log  *logrus.Entry

	received  atomic.Uint64
	published atomic.Uint64
	empty     atomic.Uint64
	failed    atomic.Uint64
}

// New returns a gateway publishing through pub with enc.
func New(pub Publisher, enc encoding.Encoder, opts Options, log *logrus.Entry) *Gateway {
	opts.TopicPrefix = strings.TrimSuffix(opts.TopicPrefix, "/")
	return &Gateway{pub: pub, enc: enc, opts: opts, log: log}
}

// Run consumes src until it finishes or ctx is cancelled. Advertisements
// already queued when the source finishes are still handled.
func (g *Gateway) Run(ctx context.Context, src source.Source) error {
	ads := make(chan frame.ServiceData, 64)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Run(ctx, ads)
	}()
	for {
		select {
		case ad := <-ads:
			g.Handle(ad)
		case err := <-errc:
			for {
				select {
				case ad := <-ads:
					g.Handle(ad)
				default:
					g.logStats()
					return err
				}
			}
		case <-ctx.Done():
			g.logStats()
			return ctx.Err()
		}
	}
}

// Handle decodes one advertisement and publishes every reading it yields.
// It returns the number of messages published.
func (g *Gateway) Handle(ad frame.ServiceData) int {
	g.received.Add(1)
	log := g.log.WithFields(logrus.Fields{
		"address": ad.Address,
		"service": ad.Service,
	})
	var decoded []blea.Decoded
	if g.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		decoded = blea.DecodeWithDetails(ad.Service, ad.Payload)
	} else {
		decoded = blea.Decode(ad.Service, ad.Payload)
	}
	if len(decoded) == 0 {
		log.Debug("no driver claims service")
		return 0
	}
	sent := 0
	for _, d := range decoded {
		dlog := log.WithFields(logrus.Fields{"driver": d.Driver, "kind": d.Kind})
		if len(d.Details) > 0 {
			dlog.WithFields(logrus.Fields(d.Details)).Debug("advertisement details")
		}
		if reading.IsEmpty(d.Reading) {
			g.empty.Add(1)
			dlog.Debug("empty reading")
			if !g.opts.PublishEmpty {
				continue
			}
		}
		payload, err := g.enc.Encode(d.Reading)
		if err != nil {
			g.failed.Add(1)
			dlog.WithError(err).Error("encode reading")
			continue
		}
		topic := g.Topic(d.Driver, ad.Address)
		if err := g.pub.Publish(topic, payload); err != nil {
			g.failed.Add(1)
			dlog.WithError(err).WithField("topic", topic).Error("publish reading")
			continue
		}
		g.published.Add(1)
		sent++
		dlog.WithField("topic", topic).Debug("published reading")
	}
	return sent
}

// Topic builds "<prefix>/<driver>/<address>". The address is lowercased and
// reduced to characters that are safe in an MQTT topic level.
func (g *Gateway) Topic(driverName, address string) string {
	level := sanitizeAddress(address)
	if g.opts.TopicPrefix == "" {
		return driverName + "/" + level
	}
	return g.opts.TopicPrefix + "/" + driverName + "/" + level
}

// Stats returns a snapshot of the counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		Received:  g.received.Load(),
		Published: g.published.Load(),
		Empty:     g.empty.Load(),
		Failed:    g.failed.Load(),
	}
}

func (g *Gateway) logStats() {
	s := g.Stats()
	g.log.WithFields(logrus.Fields{
		"received":  s.Received,
		"published": s.Published,
		"empty":     s.Empty,
		"failed":    s.Failed,
	}).Info("gateway stopped")
}

func sanitizeAddress(address string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, address)
	if clean == "" {
		return unknownAddress
	}
	return clean
}
