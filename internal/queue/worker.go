package queue

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/channelwatch/internal/config"
	"github.com/channelwatch/internal/pipeline"
	"github.com/channelwatch/pkg/logger"
)

// Stage is the entry point the worker invokes per dequeued task. Both
// pipeline stages satisfy it.
type Stage interface {
	Process(ctx context.Context, contentID uint) error
}

// Worker runs the stage handlers on a watermill router. Retry policy is
// applied per error kind: retryable stage errors are redelivered with backoff
// and parked on the poison topic once retries are exhausted; non-retryable
// ones are logged and dropped.
type Worker struct {
	router *message.Router
	log    *logger.Logger
}

// NewWorker builds the router binding the translate and analyse topics to
// their stages.
func NewWorker(
	bus *gochannel.GoChannel,
	translator Stage,
	analyzer Stage,
	cfg config.QueueConfig,
	wmLog watermill.LoggerAdapter,
	log *logger.Logger,
) (*Worker, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	poison, err := middleware.PoisonQueue(bus, TopicPoison)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      2,
		Logger:          wmLog,
	}

	// Recoverer outermost, then poison so it catches errors surviving the
	// bounded retries underneath.
	router.AddMiddleware(middleware.Recoverer, poison, retry.Middleware)

	w := &Worker{
		router: router,
		log:    log.WithComponent("worker"),
	}

	router.AddNoPublisherHandler("translator", TopicTranslate, bus, w.handler("translate", translator))
	router.AddNoPublisherHandler("analyzer", TopicAnalyse, bus, w.handler("analyse", analyzer))

	return w, nil
}

// Run blocks, processing tasks until the context is cancelled
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running returns a channel closed once all handlers are subscribed.
// Publishing before that point would drop tasks on a non-persistent bus.
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

// Close stops the router
func (w *Worker) Close() error {
	return w.router.Close()
}

// handler wraps a stage invocation with payload decoding and the error-kind
// ack policy.
func (w *Worker) handler(task string, stage Stage) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		decoded, err := DecodeTask(msg.Payload)
		if err != nil {
			// Nothing to retry: a payload that never decodes never will.
			w.log.Error().
				Err(err).
				Str("task", task).
				Str("message_id", msg.UUID).
				Str("payload", string(msg.Payload)).
				Msg("Dropping undecodable task")
			return nil
		}

		err = stage.Process(msg.Context(), decoded.ContentID)
		if err == nil {
			return nil
		}

		if stageErr, ok := pipeline.AsStageError(err); ok && !stageErr.Retryable() {
			w.log.Error().
				Err(stageErr).
				Str("task", task).
				Str("kind", string(stageErr.Kind)).
				Uint("content_id", decoded.ContentID).
				Msg("Dropping task with non-retryable failure")
			return nil
		}

		// Retryable: hand the error back to the middleware chain.
		return err
	}
}
