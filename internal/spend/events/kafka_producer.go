// Package events publishes tool change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gartstein/toolspend/internal/spend/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

// queueSize bounds the number of events waiting to be written.
const queueSize = 1000

type EventType string

const (
	ToolCreated EventType = "tool_created"
	ToolUpdated EventType = "tool_updated"
)

// Event is the message value written to the topic.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Tool       ToolPayload `json:"tool"`
}

// ToolPayload is the snapshot of a tool carried by an event.
type ToolPayload struct {
	ID               uint              `json:"id"`
	Name             string            `json:"name"`
	Vendor           string            `json:"vendor"`
	MonthlyCost      models.Money      `json:"monthly_cost"`
	OwnerDepartment  models.Department `json:"owner_department"`
	Status           models.Status     `json:"status"`
	ActiveUsersCount int64             `json:"active_users_count"`
	CategoryID       uint              `json:"category_id"`
	Category         string            `json:"category"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewEvent snapshots tool so later mutations do not leak into the message.
func NewEvent(eventType EventType, tool *models.Tool) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Tool: ToolPayload{
			ID:               tool.ID,
			Name:             tool.Name,
			Vendor:           tool.Vendor,
			MonthlyCost:      tool.MonthlyCost,
			OwnerDepartment:  tool.OwnerDepartment,
			Status:           tool.Status,
			ActiveUsersCount: tool.ActiveUsersCount,
			CategoryID:       tool.CategoryID,
			Category:         tool.Category.Name,
			UpdatedAt:        tool.UpdatedAt,
		},
	}
}

// Key partitions events of one tool onto the same partition.
func (e Event) Key() []byte {
	return []byte(strconv.FormatUint(uint64(e.Tool.ID), 10))
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues events in memory and writes them from a single goroutine,
// so Produce never blocks a request.
type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
	}, logger)
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.eventLoop()
	return p
}

// EnsureTopic creates topic on the first broker. An existing topic is not an
// error.
func EnsureTopic(ctx context.Context, brokers []string, topic string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
	return nil
}

func (p *Producer) Produce(eventType EventType, tool *models.Tool) {
	select {
	case p.events <- NewEvent(eventType, tool):
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Uint("tool_id", tool.ID),
		)
	}
}

func (p *Producer) eventLoop() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain writes whatever was queued before Close.
func (p *Producer) drain() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.Uint("tool_id", event.Tool.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   event.Key(),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Uint("tool_id", event.Tool.ID),
		)
	}
}

// Close stops the event loop after flushing the queue and closes the writer.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.closeChan)
		p.wg.Wait()
		if err := p.writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer", zap.Error(err))
		}
	})
}

// Discard drops every event. It stands in for Producer when no brokers are
// configured.
type Discard struct{}

func (Discard) Produce(EventType, *models.Tool) {}

func (Discard) Close() {}
