package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	got    []kafka.Message
	fail   bool
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("broker down")
	}
	w.got = append(w.got, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 16, zerolog.Nop())
	p.Start(context.Background())

	p.Publish([]byte("car-1"), []byte(`{"a":1}`))
	p.Publish([]byte("car-2"), []byte(`{"a":2}`))
	p.Close()
	p.Close()
	p.WaitClosed()

	require.Len(t, w.got, 2)
	assert.Equal(t, "car-1", string(w.got[0].Key))
	assert.True(t, w.closed)
}

func TestProducer_WriteErrorDoesNotStopLoop(t *testing.T) {
	w := &fakeWriter{fail: true}
	p := newProducer(w, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Publish([]byte("k"), []byte("v"))
	cancel()
	p.WaitClosed()
	assert.True(t, w.closed)
}

func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 4, zerolog.Nop())
	p.Start(context.Background())

	p.Publish([]byte("car-1"), []byte("v1"))
	p.Close()
	p.WaitClosed()

	assert.NotPanics(t, func() { p.Publish([]byte("car-2"), []byte("v2")) })
	require.Len(t, w.got, 1)
	assert.Equal(t, "car-1", string(w.got[0].Key))
}

func TestProducer_PublishRacingCloseNeverPanics(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Publish([]byte("car"), []byte("v"))
			}
		}()
	}
	p.Close()
	cancel()
	p.WaitClosed()
	wg.Wait()
	assert.True(t, w.closed)
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_CommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := newConsumer(r, 2, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			if m.Offset == 2 {
				return errors.New("bad message")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []int64{1, 3}, r.commits())
	assert.True(t, r.closed)
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		CarID string `json:"car_id"`
	}
	got, err := UnwrapPayload[payload](json.RawMessage(`{"car_id":"c1"}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", got.CarID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{`))
	assert.Error(t, err)

	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}
