package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type MockKafkaReader struct {
	mock.Mock
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaReader) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	event := Event{Type: testEntry.Type, CompanyID: "c1", Entry: testEntry}
	good := kafka.Message{Key: []byte("c1"), Value: mustMarshal(event)}
	bad := kafka.Message{Value: []byte("{not json")}

	core, recorded := observer.New(zap.ErrorLevel)
	reader := new(MockKafkaReader)
	reader.On("FetchMessage", ctx).Return(bad, nil).Once()
	reader.On("FetchMessage", ctx).Return(good, nil).Once()
	reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
	reader.On("CommitMessages", ctx, mock.Anything).Return(nil)

	consumer := newConsumer(reader, zap.New(core))
	var got []Event
	consumer.RegisterHandler(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, consumer.Run(ctx))

	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].CompanyID)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	reader.AssertNumberOfCalls(t, "CommitMessages", 2)
}

func TestConsumer_HandlerErrorSkipsCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{Value: mustMarshal(Event{Type: testEntry.Type, CompanyID: "c1", Entry: testEntry})}
	reader := new(MockKafkaReader)
	reader.On("FetchMessage", ctx).Return(msg, nil).Once()
	reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })

	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.RegisterHandler(func(context.Context, Event) error { return errors.New("boom") })

	require.NoError(t, consumer.Run(ctx))
	reader.AssertNotCalled(t, "CommitMessages", mock.Anything, mock.Anything)
}

func TestConsumer_FetchError(t *testing.T) {
	reader := new(MockKafkaReader)
	reader.On("FetchMessage", mock.Anything).Return(kafka.Message{}, errors.New("broker down"))

	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.RegisterHandler(func(context.Context, Event) error { return nil })

	assert.ErrorContains(t, consumer.Run(context.Background()), "broker down")
}

func TestConsumer_RequiresHandler(t *testing.T) {
	consumer := newConsumer(new(MockKafkaReader), zaptest.NewLogger(t))
	assert.Error(t, consumer.Run(context.Background()))
}

func TestConsumer_Close(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	reader := new(MockKafkaReader)
	reader.On("Close").Return(errors.New("already closed"))

	newConsumer(reader, zap.New(core)).Close()

	assert.Equal(t, 1, recorded.FilterMessage("Failed to close Kafka reader").Len())
}
