package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/channelwatch/pkg/logger"
)

// Dispatcher is the task-submission side of the bus. Collectors use it to
// hand new content to the translation stage; the translation stage uses it to
// hand translated content to the analysis stage.
type Dispatcher struct {
	publisher message.Publisher
	log       *logger.Logger
}

// NewDispatcher creates a dispatcher publishing on the given bus
func NewDispatcher(publisher message.Publisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		log:       log.WithComponent("dispatcher"),
	}
}

// EnqueueTranslation submits a translate task for the given content
func (d *Dispatcher) EnqueueTranslation(ctx context.Context, contentID uint) error {
	return d.enqueue(ctx, TopicTranslate, contentID)
}

// EnqueueAnalysis submits an analyse task for the given content
func (d *Dispatcher) EnqueueAnalysis(ctx context.Context, contentID uint) error {
	return d.enqueue(ctx, TopicAnalyse, contentID)
}

func (d *Dispatcher) enqueue(ctx context.Context, topic string, contentID uint) error {
	payload, err := EncodeTask(Task{ContentID: contentID})
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s task: %w", topic, err)
	}

	d.log.Debug().
		Str("topic", topic).
		Uint("content_id", contentID).
		Str("message_id", msg.UUID).
		Msg("Task enqueued")

	return nil
}
