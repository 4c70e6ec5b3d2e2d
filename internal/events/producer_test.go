package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/econdata/internal/interfaces"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/tickers"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

var _ interfaces.EventPublisher = (*Producer)(nil)

func TestPublishFetch(t *testing.T) {
	w := &mockWriter{}
	p := newProducer(w, "econdata.fetches")
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	p.now = func() time.Time { return at }

	rec := models.NewRecordFromFull(tickers.MustFull("F@GDPC1"))
	rec.Name = "Real GDP"
	require.NoError(t, p.PublishFetch(context.Background(), rec))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "F@GDPC1", string(w.messages[0].Key))

	var event FetchEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, EventTypeExternalFetch, event.Type)
	assert.Equal(t, "F@GDPC1", event.Ticker)
	assert.Equal(t, "F", event.Provider)
	assert.Equal(t, "Real GDP", event.Name)
	assert.True(t, event.At.Equal(at))
	_, err := uuid.Parse(event.ID)
	assert.NoError(t, err)
}

func TestPublishFetch_WriterError(t *testing.T) {
	w := &mockWriter{err: errors.New("no brokers")}
	p := newProducer(w, "econdata.fetches")

	err := p.PublishFetch(context.Background(), models.NewRecordFromFull(tickers.MustFull("F@X")))
	assert.ErrorContains(t, err, "econdata.fetches")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
