package queue

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/channelwatch/internal/config"
)

// NewBus creates the in-process event bus carrying pipeline tasks. This is
// the substitution point for an external broker: anything satisfying
// watermill's Publisher/Subscriber can replace the go-channel implementation
// without touching the stages.
func NewBus(cfg config.QueueConfig, log watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(cfg.BufferSize),
		},
		log,
	)
}
