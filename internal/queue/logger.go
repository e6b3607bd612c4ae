package queue

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/channelwatch/pkg/logger"
)

// watermillLogger adapts our zerolog wrapper to watermill's LoggerAdapter.
type watermillLogger struct {
	log *logger.Logger
}

// NewWatermillLogger wraps a logger for use by watermill internals
func NewWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log.WithComponent("queue")}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.log.Error().Err(err), msg, fields)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.log.Info(), msg, fields)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.log.Debug(), msg, fields)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.log.Trace(), msg, fields)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	sub := l.log.With()
	for k, v := range fields {
		sub = sub.Interface(k, v)
	}
	return &watermillLogger{log: &logger.Logger{Logger: sub.Logger()}}
}

func (l *watermillLogger) event(evt *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg(msg)
}
