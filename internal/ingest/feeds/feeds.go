// Package feeds implements the web-feed connector: every configured feed
// becomes a source under the "feeds" collector, and each polling pass ingests
// the items not seen before.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"github.com/channelwatch/internal/config"
	"github.com/channelwatch/internal/ingest"
	"github.com/channelwatch/pkg/logger"
	"github.com/channelwatch/pkg/ratelimit"
)

const (
	shortName = "feeds"
	longName  = "Web Feed Monitor"
)

// Connector polls configured web feeds on a cron schedule
type Connector struct {
	svc         *ingest.Service
	cfg         config.FeedsConfig
	parser      *gofeed.Parser
	cron        *cron.Cron
	rateLimiter *ratelimit.MultiLimiter
	collectorID uint
	log         *logger.Logger
}

// New creates the feed connector
func New(svc *ingest.Service, cfg config.FeedsConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Connector {
	return &Connector{
		svc:         svc,
		cfg:         cfg,
		parser:      gofeed.NewParser(),
		rateLimiter: limiter,
		log:         log.WithCollector(shortName),
	}
}

// Name returns the collector short name
func (c *Connector) Name() string {
	return shortName
}

// Connect registers the collector and one source per configured feed
func (c *Connector) Connect(ctx context.Context) error {
	collector, err := c.svc.EnsureCollector(ctx, shortName, longName)
	if err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	c.collectorID = collector.ID

	for _, feed := range c.cfg.Feeds {
		if _, err := c.svc.AddSource(ctx, c.collectorID, feed.URL, feed.Name); err != nil {
			return fmt.Errorf("failed to register source %s: %w", feed.Name, err)
		}
	}

	return nil
}

// Run polls all feeds once immediately, then on the configured cron schedule
// until the context is cancelled.
func (c *Connector) Run(ctx context.Context) error {
	c.pollAll(ctx)

	c.cron = cron.New()
	_, err := c.cron.AddFunc(c.cfg.PollCron, func() {
		c.pollAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", c.cfg.PollCron, err)
	}

	c.cron.Start()
	<-ctx.Done()
	return nil
}

// Disconnect stops the polling schedule
func (c *Connector) Disconnect() error {
	if c.cron != nil {
		stopped := c.cron.Stop()
		<-stopped.Done()
	}
	return nil
}

// pollAll fetches every configured feed once
func (c *Connector) pollAll(ctx context.Context) {
	for _, feed := range c.cfg.Feeds {
		if err := c.poll(ctx, feed); err != nil {
			c.log.Error().
				Err(err).
				Str("feed", feed.Name).
				Msg("Feed poll failed")
		}
	}
}

// poll ingests the new items of one feed
func (c *Connector) poll(ctx context.Context, feed config.Feed) error {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterFeeds); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	ingested := 0
	for _, item := range parsed.Items {
		originTime := time.Now().UTC()
		if item.PublishedParsed != nil {
			originTime = *item.PublishedParsed
		}

		externalUID := item.GUID
		if externalUID == "" {
			externalUID = item.Link
		}

		text := item.Title
		if item.Description != "" {
			text = item.Title + "\n\n" + item.Description
		}

		id, err := c.svc.AddContent(ctx, ingest.AddContentInput{
			CollectorID: c.collectorID,
			SourceUID:   feed.URL,
			OriginTime:  originTime,
			Text:        text,
			ExternalUID: externalUID,
			Metadata: map[string]interface{}{
				"link":       item.Link,
				"guid":       item.GUID,
				"categories": item.Categories,
			},
		})
		if errors.Is(err, ingest.ErrEmptyText) {
			continue
		}
		if err != nil {
			c.log.Warn().
				Err(err).
				Str("feed", feed.Name).
				Str("item", item.Link).
				Msg("Failed to ingest feed item")
			continue
		}
		if id != 0 {
			ingested++
		}
	}

	c.log.Info().
		Str("feed", feed.Name).
		Int("items", len(parsed.Items)).
		Int("ingested", ingested).
		Msg("Feed polled")

	return nil
}
