package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testTool() *models.Tool {
	return &models.Tool{
		ID:               42,
		Name:             "Slack",
		Vendor:           "Slack Technologies",
		MonthlyCost:      models.Money(1999),
		OwnerDepartment:  models.Engineering,
		Status:           models.StatusActive,
		ActiveUsersCount: 7,
		CategoryID:       3,
		Category:         models.Category{ID: 3, Name: "Communication"},
	}
}

func TestNewEvent(t *testing.T) {
	tool := testTool()
	event := NewEvent(ToolCreated, tool)
	tool.Name = "changed later"

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, ToolCreated, event.Type)
	assert.Equal(t, "Slack", event.Tool.Name)
	assert.Equal(t, "Communication", event.Tool.Category)
	assert.Equal(t, []byte("42"), event.Key())

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "tool_created", decoded["type"])
	payload := decoded["tool"].(map[string]interface{})
	assert.Equal(t, 19.99, payload["monthly_cost"])
	assert.Equal(t, "Engineering", payload["owner_department"])
}

func TestProducer_Produce(t *testing.T) {
	t.Run("queues event", func(t *testing.T) {
		producer := &Producer{
			events: make(chan Event, 1),
			logger: zaptest.NewLogger(t),
		}

		producer.Produce(ToolCreated, testTool())

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{
			events: make(chan Event, 1),
			logger: zap.New(core),
		}

		producer.Produce(ToolCreated, testTool())
		producer.Produce(ToolUpdated, testTool())

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("event_type", "tool_updated")).Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &Producer{
		writer: mockWriter,
		logger: zaptest.NewLogger(t),
	}
	event := NewEvent(ToolUpdated, testTool())

	t.Run("successful send", func(t *testing.T) {
		var sent []kafka.Message
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(1).([]kafka.Message)
			}).
			Return(nil).Once()

		producer.sendEvent(context.Background(), event)

		require.Len(t, sent, 1)
		assert.Equal(t, []byte("42"), sent[0].Key)
		assert.Equal(t, mustMarshal(event), sent[0].Value)
		assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("tool_updated")}}, sent[0].Headers)
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.Uint("tool_id", 42)).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_EventLoopAndClose(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	written := make(chan struct{}, 2)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { written <- struct{}{} }).
		Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t))
	producer.Produce(ToolCreated, testTool())

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}

	producer.Close()
	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	mockWriter.AssertNumberOfCalls(t, "Close", 1)
}

func TestNewProducer(t *testing.T) {
	producer := NewProducer([]string{"localhost:9092"}, "tools", zaptest.NewLogger(t))
	defer producer.Close()

	writer, ok := producer.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "tools", writer.Topic)
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.ErrorLevel, "").LoggerName)
}

func TestDiscard(t *testing.T) {
	var d Discard
	assert.NotPanics(t, func() {
		d.Produce(ToolCreated, testTool())
		d.Close()
	})
}

func mustMarshal(event Event) []byte {
	data, _ := json.Marshal(event)
	return data
}
