// Package slack implements the Slack source connector. It walks the
// configured channels and emits messages, with their thread replies
// attached, as raw items.
package slack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Default configuration values.
const (
	DefaultPageSize    = 200
	DefaultMaxMessages = 1000
	DefaultDaysBack    = 365

	// minMessageLength drops one-word reactions and acknowledgments
	// before any LLM filtering happens.
	minMessageLength = 10

	// apiRate throttles to one request per second, inside Slack's tier 3
	// limit for conversation methods.
	apiRate = 1.0
)

// skippedSubtypes are message subtypes never worth indexing.
var skippedSubtypes = map[string]struct{}{
	"bot_message":   {},
	"channel_join":  {},
	"channel_leave": {},
}

// api is the slice of the Slack client the connector uses. Narrowed for
// testing.
type api interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	GetConversationInfoContext(ctx context.Context, input *slackapi.GetConversationInfoInput) (*slackapi.Channel, error)
	GetConversationHistoryContext(ctx context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slackapi.GetConversationRepliesParameters) ([]slackapi.Message, bool, string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slackapi.User, error)
}

// Config holds configuration for the Slack connector.
type Config struct {
	// BotToken is the bot user OAuth token (required).
	BotToken string

	// Channels lists channel IDs to ingest (required).
	Channels []string

	// DaysBack limits ingestion to messages newer than this many days.
	DaysBack int

	// MaxMessagesPerChannel caps one channel's fetch.
	MaxMessagesPerChannel int
}

// Connector streams Slack channel messages as raw items.
type Connector struct {
	client  api
	limiter *rate.Limiter
	cfg     Config

	// Injected for tests.
	now func() time.Time
}

// NewConnector creates a Slack connector.
func NewConnector(cfg Config) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("slack: at least one channel is required")
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = DefaultDaysBack
	}
	if cfg.MaxMessagesPerChannel <= 0 {
		cfg.MaxMessagesPerChannel = DefaultMaxMessages
	}

	return &Connector{
		client:  slackapi.New(cfg.BotToken),
		limiter: rate.NewLimiter(rate.Limit(apiRate), 1),
		cfg:     cfg,
		now:     time.Now,
	}, nil
}

// Source returns the source tag.
func (c *Connector) Source() string {
	return domain.SourceSlack
}

// Validate confirms the token authenticates.
func (c *Connector) Validate(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.client.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	return nil
}

// Items streams messages from every configured channel. A failure
// confined to one channel is reported on the error channel and the walk
// continues.
func (c *Connector) Items(ctx context.Context) (<-chan domain.RawItem, <-chan error) {
	items := make(chan domain.RawItem)
	errs := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errs)

		// Per-run cache: user lookups repeat heavily within one run.
		users := make(map[string]string)

		for _, channelID := range c.cfg.Channels {
			if err := c.walkChannel(ctx, channelID, users, items); err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case errs <- fmt.Errorf("channel %s: %w", channelID, err):
				}
			}
		}
	}()

	return items, errs
}

// Close releases resources (no-op for HTTP-based API).
func (c *Connector) Close() error {
	return nil
}

func (c *Connector) walkChannel(ctx context.Context, channelID string, users map[string]string, items chan<- domain.RawItem) error {
	channelName := c.channelName(ctx, channelID)
	logger.Info("Walking channel #%s", channelName)

	oldest := strconv.FormatInt(c.now().AddDate(0, 0, -c.cfg.DaysBack).Unix(), 10)

	var (
		cursor  string
		fetched int
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.client.GetConversationHistoryContext(ctx, &slackapi.GetConversationHistoryParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Oldest:    oldest,
			Limit:     DefaultPageSize,
		})
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}

		for _, msg := range resp.Messages {
			fetched++
			item, ok := c.buildItem(ctx, channelID, channelName, msg, users)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case items <- item:
			}
		}

		cursor = resp.ResponseMetaData.NextCursor
		if cursor == "" || !resp.HasMore || fetched >= c.cfg.MaxMessagesPerChannel {
			return nil
		}
	}
}

// buildItem converts one history message to a raw item, fetching thread
// replies when present. Returns false for messages not worth carrying.
func (c *Connector) buildItem(ctx context.Context, channelID, channelName string, msg slackapi.Message, users map[string]string) (domain.RawItem, bool) {
	if _, skip := skippedSubtypes[msg.SubType]; skip {
		return domain.RawItem{}, false
	}
	text := strings.TrimSpace(msg.Text)
	if len(text) < minMessageLength {
		return domain.RawItem{}, false
	}

	author := c.userName(ctx, msg.User, users)

	var thread []domain.ThreadReply
	if msg.ReplyCount > 0 {
		replies, err := c.fetchReplies(ctx, channelID, msg.Timestamp, users)
		if err != nil {
			// Lost replies degrade the document, they do not drop it.
			logger.Warn("Failed to fetch thread for %s: %v", msg.Timestamp, err)
		} else {
			thread = replies
		}
	}

	return MessageItem(channelID, channelName, author, text, msg.Timestamp, thread), true
}

func (c *Connector) fetchReplies(ctx context.Context, channelID, timestamp string, users map[string]string) ([]domain.ThreadReply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	messages, _, _, err := c.client.GetConversationRepliesContext(ctx, &slackapi.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: timestamp,
	})
	if err != nil {
		return nil, err
	}

	var replies []domain.ThreadReply
	for i, reply := range messages {
		if i == 0 {
			// The first entry is the parent message.
			continue
		}
		text := strings.TrimSpace(reply.Text)
		if len(text) < minMessageLength {
			continue
		}
		replies = append(replies, domain.ThreadReply{
			Author: c.userName(ctx, reply.User, users),
			Text:   text,
		})
	}
	return replies, nil
}

// userName resolves a user ID to a display name, caching per run and
// falling back to the raw ID when lookup fails.
func (c *Connector) userName(ctx context.Context, userID string, cache map[string]string) string {
	if userID == "" {
		return "unknown"
	}
	if name, ok := cache[userID]; ok {
		return name
	}

	name := userID
	if err := c.limiter.Wait(ctx); err == nil {
		if user, err := c.client.GetUserInfoContext(ctx, userID); err == nil {
			if user.RealName != "" {
				name = user.RealName
			} else if user.Name != "" {
				name = user.Name
			}
		} else {
			logger.Debug("User lookup failed for %s: %v", userID, err)
		}
	}

	cache[userID] = name
	return name
}

func (c *Connector) channelName(ctx context.Context, channelID string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return channelID
	}
	channel, err := c.client.GetConversationInfoContext(ctx, &slackapi.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil || channel.Name == "" {
		logger.Debug("Channel lookup failed for %s: %v", channelID, err)
		return channelID
	}
	return channel.Name
}

// MessageItem builds the raw item for one channel message.
func MessageItem(channelID, channelName, author, text, timestamp string, thread []domain.ThreadReply) domain.RawItem {
	return domain.RawItem{
		DocID:   fmt.Sprintf("slack_msg_%s_%s", channelID, strings.ReplaceAll(timestamp, ".", "_")),
		Source:  domain.SourceSlack,
		Type:    domain.ContentMessage,
		Group:   channelName,
		Content: text,
		Author:  author,
		URL:     fmt.Sprintf("https://slack.com/archives/%s/p%s", channelID, strings.ReplaceAll(timestamp, ".", "")),
		Thread:  thread,
		Metadata: map[string]any{
			"channel":    channelName,
			"channel_id": channelID,
			"timestamp":  timestamp,
		},
	}
}
