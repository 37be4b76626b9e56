package consumer

import (
	"context"
	"encoding/json"

	"github.com/pawprint/go-reminder-service/internal/domain"
	"github.com/pawprint/go-reminder-service/internal/metrics"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
	"github.com/pawprint/go-reminder-service/internal/shared/rabbitmq"
	syncer "github.com/pawprint/go-reminder-service/internal/sync"
)

const (
	petEventsExchange   = "pets"
	reminderSyncQueue   = "reminder_sync_queue"
	petEventsRoutingKey = "pets.*"
)

// EventConsumer turns pet platform events into sync requests
type EventConsumer struct {
	client *rabbitmq.RabbitMQClient
	orch   *syncer.Orchestrator
	log    *logger.Logger
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(client *rabbitmq.RabbitMQClient, orch *syncer.Orchestrator, log *logger.Logger) *EventConsumer {
	return &EventConsumer{
		client: client,
		orch:   orch,
		log:    log,
	}
}

// Start declares the topology and consumes until the channel closes
func (c *EventConsumer) Start() error {
	c.log.Info("Starting event consumer", "queue", reminderSyncQueue)

	if err := c.client.DeclareExchange(petEventsExchange, "topic"); err != nil {
		c.log.Error("Failed to declare exchange", "error", err)
		return err
	}

	if err := c.client.DeclareQueue(reminderSyncQueue); err != nil {
		c.log.Error("Failed to declare queue", "error", err)
		return err
	}

	if err := c.client.BindQueue(reminderSyncQueue, petEventsRoutingKey, petEventsExchange); err != nil {
		c.log.Error("Failed to bind queue", "error", err)
		return err
	}

	messages, err := c.client.Consume(reminderSyncQueue)
	if err != nil {
		c.log.Error("Failed to start consuming", "error", err)
		return err
	}

	for msg := range messages {
		var event domain.Event
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Error("Failed to unmarshal event", "error", err)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}
		if event.OwnerID == "" {
			c.log.Warn("Dropping event without owner", "type", event.Type)
			msg.Nack(false, false)
			continue
		}

		metrics.EventsConsumed.WithLabelValues(event.Type).Inc()

		// A dropped trigger is fine here: either a run within the
		// cooldown already covered it, or the periodic sweep will.
		triggered := c.orch.RequestSync(context.Background(), event.OwnerID)
		msg.Ack(false)
		c.log.Debug("Event handled", "type", event.Type, "owner_id", event.OwnerID, "triggered", triggered)
	}

	return nil
}
