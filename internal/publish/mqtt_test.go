package publish

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/bitkill/hello-blea/internal/frame"
	"github.com/bitkill/hello-blea/internal/source"
)

type doneToken struct {
	err     error
	pending bool
}

func (t doneToken) Wait() bool                       { return !t.pending }
func (t doneToken) WaitTimeout(_ time.Duration) bool { return !t.pending }
func (t doneToken) Error() error                     { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

// fakeBroker stands in for a connected paho client. Its subscriptions live
// only as long as the current session.
type fakeBroker struct {
	paho.Client

	mu          sync.Mutex
	subs        map[string]paho.MessageHandler
	connectTok  paho.Token
	disconnects int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string]paho.MessageHandler), connectTok: doneToken{}}
}

func (f *fakeBroker) Connect() paho.Token { return f.connectTok }

func (f *fakeBroker) Disconnect(_ uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeBroker) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = cb
	return doneToken{}
}

func (f *fakeBroker) Unsubscribe(topics ...string) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, topic := range topics {
		delete(f.subs, topic)
	}
	return doneToken{}
}

// drop ends the session the way a clean-session broker does.
func (f *fakeBroker) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = make(map[string]paho.MessageHandler)
}

func (f *fakeBroker) subscribed(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[topic]
	return ok
}

func (f *fakeBroker) deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if !ok {
		return false
	}
	h(f, fakeMessage{topic: topic, payload: payload})
	return true
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestClient(inner paho.Client) *Client {
	return &Client{
		inner: inner,
		opts:  ClientOptions{Broker: "tcp://broker:1883", QoS: 1, ConnectTimeout: time.Second},
		log:   testLogger(),
		subs:  make(map[string]paho.MessageHandler),
	}
}

func TestSubscriptionsSurviveReconnect(t *testing.T) {
	const topic = "ble/adverts"
	advert := []byte(`{"address":"aa:bb","service":"fdcd","data":"080100000011121302144e"}`)

	broker := newFakeBroker()
	c := newTestClient(broker)
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan frame.ServiceData, 1)
	done := make(chan error, 1)
	go func() { done <- source.NewTopic(c, topic, testLogger()).Run(ctx, out) }()

	require.Eventually(t, func() bool { return broker.subscribed(topic) }, time.Second, 5*time.Millisecond)
	require.True(t, broker.deliver(topic, advert))
	receive(t, out)

	broker.drop()
	require.False(t, broker.deliver(topic, advert))
	c.onConnect(broker)
	require.True(t, broker.deliver(topic, advert), "subscription not restored after reconnect")
	ad := receive(t, out)
	require.Equal(t, "aa:bb", ad.Address)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	broker.drop()
	c.onConnect(broker)
	require.False(t, broker.subscribed(topic), "unsubscribed topic restored")
}

func TestSubscribeFailureIsNotRestored(t *testing.T) {
	broker := &failingSubscribe{fakeBroker: newFakeBroker()}
	c := newTestClient(broker)
	require.Error(t, c.Subscribe("ble/adverts", func([]byte) {}))
	require.Empty(t, c.subs)
}

type failingSubscribe struct {
	*fakeBroker
}

func (f *failingSubscribe) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return doneToken{err: errors.New("not authorized")}
}

func TestConnectFailureShutsDownClient(t *testing.T) {
	broker := newFakeBroker()
	broker.connectTok = doneToken{pending: true}
	c := newTestClient(broker)
	require.ErrorContains(t, c.connect(), "timeout")
	require.Equal(t, 1, broker.disconnects)

	broker.connectTok = doneToken{err: errors.New("connection refused")}
	require.ErrorContains(t, c.connect(), "connection refused")
	require.Equal(t, 2, broker.disconnects)

	broker.connectTok = doneToken{}
	require.NoError(t, c.connect())
	require.Equal(t, 2, broker.disconnects)
}

func receive(t *testing.T, out <-chan frame.ServiceData) frame.ServiceData {
	t.Helper()
	select {
	case ad := <-out:
		return ad
	case <-time.After(time.Second):
		t.Fatal("no advertisement delivered")
		return frame.ServiceData{}
	}
}
