package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until cancelled.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func newFakeReader(values ...[]byte) *fakeReader {
	r := &fakeReader{drained: make(chan struct{})}
	for i, v := range values {
		r.messages = append(r.messages, kafka.Message{Offset: int64(i), Value: v})
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
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
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type call struct {
	channels []string
	payload  string
	skip     string
}

type recordingFanout struct {
	mu    sync.Mutex
	calls []call
}

func (f *recordingFanout) Broadcast(_ context.Context, channels []string, payload []byte, skip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{channels: channels, payload: string(payload), skip: skip})
	return nil
}

func encodeJob(t *testing.T, job BroadcastJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestWorkerRun(t *testing.T) {
	reader := newFakeReader(
		encodeJob(t, BroadcastJob{Channels: []string{"orders"}, Data: json.RawMessage(`{"event":"a"}`), SkipConnectionID: "c1"}),
		[]byte("not json"),
		encodeJob(t, BroadcastJob{Channels: []string{"news", "sports"}, Data: json.RawMessage(`{"event":"b"}`)}),
	)
	fanout := &recordingFanout{}
	worker := NewWorker(reader, fanout, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	require.Len(t, fanout.calls, 2)
	assert.Equal(t, call{channels: []string{"orders"}, payload: `{"event":"a"}`, skip: "c1"}, fanout.calls[0])
	assert.Equal(t, []string{"news", "sports"}, fanout.calls[1].channels)

	assert.Equal(t, []int64{0, 1, 2}, reader.committed, "poison messages are committed too")
	assert.True(t, reader.closed)
}
