package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/config"
	"offerlens/internal/model"
)

type fakeWriter struct {
	batches  [][]kafka.Message
	failures int
	calls    int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func rows(n int) []model.EnrichedRow {
	out := make([]model.EnrichedRow, n)
	for i := range out {
		out[i].GlobalIndex = i
		out[i].CustomerID = []string{"a", "b"}[i%2]
		out[i].Kind = model.KindTransaction
	}
	return out
}

func TestPublishBatches(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, 2, nil)
	p.backoff = 0

	sent, err := p.Publish(context.Background(), rows(5))
	require.NoError(t, err)
	assert.Equal(t, 5, sent)
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[2], 1)

	msg := w.batches[1][1]
	assert.Equal(t, "b", string(msg.Key))
	var got model.EnrichedRow
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, 3, got.GlobalIndex)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishRetries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newPublisher(w, 10, nil)
	p.backoff = 0

	sent, err := p.Publish(context.Background(), rows(3))
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, 3, w.calls)
}

func TestPublishGivesUp(t *testing.T) {
	w := &fakeWriter{failures: maxAttempts + 1}
	p := newPublisher(w, 2, nil)
	p.backoff = 0

	sent, err := p.Publish(context.Background(), rows(4))
	require.Error(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, maxAttempts, w.calls)
}

func TestDisabledPublisher(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Enabled: false}, nil)
	assert.Nil(t, p)
	sent, err := p.Publish(context.Background(), rows(2))
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.NoError(t, p.Close())
}
