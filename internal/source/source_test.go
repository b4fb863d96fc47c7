package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bitkill/hello-blea/internal/frame"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestParseLine(t *testing.T) {
	ad, err := ParseLine("A4:C1:38:4C:65:A8 fe95 40000000000a10015a")
	require.NoError(t, err)
	require.Equal(t, "A4:C1:38:4C:65:A8", ad.Address)
	require.Equal(t, "0000fe95-0000-1000-8000-00805f9b34fb", ad.Service)
	require.Equal(t, []byte{0x40, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x10, 0x01, 0x5a}, ad.Payload)

	ad, err = ParseLine("0000fdcd-0000-1000-8000-00805f9b34fb 0x0801")
	require.NoError(t, err)
	require.Empty(t, ad.Address)
	require.Equal(t, []byte{0x08, 0x01}, ad.Payload)
}

func TestParseLineInvalid(t *testing.T) {
	for _, line := range []string{"", "fe95", "a b c d", "zz 0011", "fe95 abc"} {
		_, err := ParseLine(line)
		require.True(t, errors.Is(err, ErrInvalidLine), line)
	}
}

func TestLinesRun(t *testing.T) {
	input := strings.Join([]string{
		"# captured with a passive scan",
		"",
		"aa:bb fe95 40000000000a10015a",
		"garbage",
		"fdcd 08010000001112130214 4e",
		"fdcd 080100000011121302144e",
	}, "\n")
	out := make(chan frame.ServiceData, 8)
	err := NewLines(strings.NewReader(input), testLogger()).Run(context.Background(), out)
	require.NoError(t, err)
	close(out)

	var got []frame.ServiceData
	for ad := range out {
		got = append(got, ad)
	}
	require.Len(t, got, 2)
	require.Equal(t, "aa:bb", got[0].Address)
	require.Equal(t, "0000fdcd-0000-1000-8000-00805f9b34fb", got[1].Service)
}

func TestLinesRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan frame.ServiceData)
	err := NewLines(strings.NewReader("fe95 4000"), testLogger()).Run(ctx, out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseMessage(t *testing.T) {
	ad, err := ParseMessage([]byte(`{"address":"a4:c1:38:4c:65:a8","service":"0000fe95-0000-1000-8000-00805f9b34fb","data":"40000000000a10015a"}`))
	require.NoError(t, err)
	require.Equal(t, "a4:c1:38:4c:65:a8", ad.Address)
	require.Len(t, ad.Payload, 9)

	_, err = ParseMessage([]byte(`{"service":"fe95","data":"xyz"}`))
	require.ErrorIs(t, err, ErrInvalidLine)
	_, err = ParseMessage([]byte(`not json`))
	require.ErrorIs(t, err, ErrInvalidLine)
}

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) Subscribe(topic string, handler func([]byte)) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *mockSubscriber) Unsubscribe(topic string) error {
	return m.Called(topic).Error(0)
}

func TestTopicRun(t *testing.T) {
	sub := &mockSubscriber{}
	handlers := make(chan func([]byte), 1)
	sub.On("Subscribe", "ble/adverts", mock.Anything).
		Run(func(args mock.Arguments) { handlers <- args.Get(1).(func([]byte)) }).
		Return(nil)
	sub.On("Unsubscribe", "ble/adverts").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan frame.ServiceData, 1)
	done := make(chan error, 1)
	src := NewTopic(sub, "ble/adverts", testLogger())
	go func() { done <- src.Run(ctx, out) }()

	var h func([]byte)
	select {
	case h = <-handlers:
	case <-time.After(time.Second):
		t.Fatal("source did not subscribe")
	}
	h([]byte(`{"service":"fdcd","data":"080100000011121302144e"}`))
	h([]byte(`broken`))

	select {
	case ad := <-out:
		require.Equal(t, "0000fdcd-0000-1000-8000-00805f9b34fb", ad.Service)
	case <-time.After(time.Second):
		t.Fatal("no advertisement delivered")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	sub.AssertExpectations(t)
}

func TestTopicRunSubscribeError(t *testing.T) {
	sub := &mockSubscriber{}
	sub.On("Subscribe", "ble/adverts", mock.Anything).Return(errors.New("not connected"))
	err := NewTopic(sub, "ble/adverts", testLogger()).Run(context.Background(), make(chan frame.ServiceData))
	require.EqualError(t, err, "not connected")
}
