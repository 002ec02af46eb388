package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
)

// fakeAPI implements the api interface for testing.
type fakeAPI struct {
	authErr     error
	history     map[string][]slackapi.GetConversationHistoryResponse
	historyErr  map[string]error
	replies     map[string][]slackapi.Message
	users       map[string]*slackapi.User
	channels    map[string]string
	userLookups int
	page        map[string]int
}

func (f *fakeAPI) AuthTestContext(_ context.Context) (*slackapi.AuthTestResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &slackapi.AuthTestResponse{Team: "acme"}, nil
}

func (f *fakeAPI) GetConversationInfoContext(_ context.Context, input *slackapi.GetConversationInfoInput) (*slackapi.Channel, error) {
	name, ok := f.channels[input.ChannelID]
	if !ok {
		return nil, errors.New("channel_not_found")
	}
	channel := &slackapi.Channel{}
	channel.Name = name
	return channel, nil
}

func (f *fakeAPI) GetConversationHistoryContext(_ context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
	if err := f.historyErr[params.ChannelID]; err != nil {
		return nil, err
	}
	if f.page == nil {
		f.page = make(map[string]int)
	}
	pages := f.history[params.ChannelID]
	idx := f.page[params.ChannelID]
	if idx >= len(pages) {
		return &slackapi.GetConversationHistoryResponse{}, nil
	}
	f.page[params.ChannelID]++
	return &pages[idx], nil
}

func (f *fakeAPI) GetConversationRepliesContext(_ context.Context, params *slackapi.GetConversationRepliesParameters) ([]slackapi.Message, bool, string, error) {
	return f.replies[params.Timestamp], false, "", nil
}

func (f *fakeAPI) GetUserInfoContext(_ context.Context, user string) (*slackapi.User, error) {
	f.userLookups++
	u, ok := f.users[user]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

func message(user, text, ts string, replyCount int) slackapi.Message {
	msg := slackapi.Message{}
	msg.User = user
	msg.Text = text
	msg.Timestamp = ts
	msg.ReplyCount = replyCount
	return msg
}

func newTestConnector(f *fakeAPI, channels ...string) *Connector {
	return &Connector{
		client:  f,
		limiter: rate.NewLimiter(rate.Inf, 1),
		cfg: Config{
			BotToken:              "xoxb-test",
			Channels:              channels,
			DaysBack:              DefaultDaysBack,
			MaxMessagesPerChannel: DefaultMaxMessages,
		},
		now: time.Now,
	}
}

func collect(t *testing.T, conn *Connector) ([]domain.RawItem, []error) {
	t.Helper()
	ctx := context.Background()
	itemCh, errCh := conn.Items(ctx)

	var (
		items []domain.RawItem
		errs  []error
	)
	for itemCh != nil || errCh != nil {
		select {
		case item, ok := <-itemCh:
			if !ok {
				itemCh = nil
				continue
			}
			items = append(items, item)
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			errs = append(errs, err)
		}
	}
	return items, errs
}

func TestNewConnector(t *testing.T) {
	t.Run("requires a token", func(t *testing.T) {
		_, err := NewConnector(Config{Channels: []string{"C01"}})
		assert.Error(t, err)
	})

	t.Run("requires channels", func(t *testing.T) {
		_, err := NewConnector(Config{BotToken: "xoxb-x"})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		conn, err := NewConnector(Config{BotToken: "xoxb-x", Channels: []string{"C01"}})
		require.NoError(t, err)
		assert.Equal(t, DefaultDaysBack, conn.cfg.DaysBack)
		assert.Equal(t, DefaultMaxMessages, conn.cfg.MaxMessagesPerChannel)
		assert.Equal(t, domain.SourceSlack, conn.Source())
	})
}

func TestValidate(t *testing.T) {
	conn := newTestConnector(&fakeAPI{}, "C01")
	assert.NoError(t, conn.Validate(context.Background()))

	conn = newTestConnector(&fakeAPI{authErr: errors.New("invalid_auth")}, "C01")
	assert.Error(t, conn.Validate(context.Background()))
}

func TestItems(t *testing.T) {
	t.Run("emits useful messages with resolved names", func(t *testing.T) {
		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			users:    map[string]*slackapi.User{"U1": {RealName: "Alice Smith"}},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C01": {{Messages: []slackapi.Message{
					message("U1", "we should switch the pool to pgbouncer", "1700000000.000100", 0),
				}}},
			},
		}

		items, errs := collect(t, newTestConnector(fake, "C01"))
		assert.Empty(t, errs)
		require.Len(t, items, 1)

		item := items[0]
		assert.Equal(t, "slack_msg_C01_1700000000_000100", item.DocID)
		assert.Equal(t, domain.ContentMessage, item.Type)
		assert.Equal(t, "tech-infra", item.Group)
		assert.Equal(t, "Alice Smith", item.Author)
		assert.Equal(t, "https://slack.com/archives/C01/p1700000000000100", item.URL)
		assert.Equal(t, "tech-infra", item.Metadata["channel"])
	})

	t.Run("skips bot and short messages", func(t *testing.T) {
		bot := message("U2", "nightly build passed with all checks green", "1700000001.000100", 0)
		bot.SubType = "bot_message"
		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C01": {{Messages: []slackapi.Message{
					bot,
					message("U1", "ok", "1700000002.000100", 0),
					message("U1", "deploy window moved to 14:00 UTC", "1700000003.000100", 0),
				}}},
			},
		}

		items, errs := collect(t, newTestConnector(fake, "C01"))
		assert.Empty(t, errs)
		require.Len(t, items, 1)
		assert.Equal(t, "deploy window moved to 14:00 UTC", items[0].Content)
	})

	t.Run("attaches thread replies without the parent", func(t *testing.T) {
		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			users: map[string]*slackapi.User{
				"U1": {RealName: "Alice Smith"},
				"U2": {Name: "bob"},
			},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C01": {{Messages: []slackapi.Message{
					message("U1", "proposal: move retries to the queue", "1700000000.000100", 2),
				}}},
			},
			replies: map[string][]slackapi.Message{
				"1700000000.000100": {
					message("U1", "proposal: move retries to the queue", "1700000000.000100", 2),
					message("U2", "works for transaction mode too", "1700000000.000200", 0),
					message("U2", "+1", "1700000000.000300", 0),
				},
			},
		}

		items, errs := collect(t, newTestConnector(fake, "C01"))
		assert.Empty(t, errs)
		require.Len(t, items, 1)
		require.Len(t, items[0].Thread, 1)
		assert.Equal(t, "bob", items[0].Thread[0].Author)
		assert.Equal(t, "works for transaction mode too", items[0].Thread[0].Text)
	})

	t.Run("caches user lookups", func(t *testing.T) {
		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			users:    map[string]*slackapi.User{"U1": {RealName: "Alice Smith"}},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C01": {{Messages: []slackapi.Message{
					message("U1", "first useful message from alice", "1700000000.000100", 0),
					message("U1", "second useful message from alice", "1700000001.000100", 0),
				}}},
			},
		}

		items, _ := collect(t, newTestConnector(fake, "C01"))
		require.Len(t, items, 2)
		assert.Equal(t, 1, fake.userLookups)
	})

	t.Run("failed user lookup falls back to the ID", func(t *testing.T) {
		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C01": {{Messages: []slackapi.Message{
					message("U9", "a perfectly useful message here", "1700000000.000100", 0),
				}}},
			},
		}

		items, _ := collect(t, newTestConnector(fake, "C01"))
		require.Len(t, items, 1)
		assert.Equal(t, "U9", items[0].Author)
	})

	t.Run("channel failure does not abort other channels", func(t *testing.T) {
		fake := &fakeAPI{
			channels:   map[string]string{"C01": "broken", "C02": "tech-infra"},
			historyErr: map[string]error{"C01": errors.New("missing_scope")},
			history: map[string][]slackapi.GetConversationHistoryResponse{
				"C02": {{Messages: []slackapi.Message{
					message("U1", "deploy window moved to 14:00 UTC", "1700000000.000100", 0),
				}}},
			},
		}

		items, errs := collect(t, newTestConnector(fake, "C01", "C02"))
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "C01")
		require.Len(t, items, 1)
		assert.Equal(t, "tech-infra", items[0].Group)
	})

	t.Run("follows pagination cursors", func(t *testing.T) {
		page1 := slackapi.GetConversationHistoryResponse{
			HasMore:  true,
			Messages: []slackapi.Message{message("U1", "first page useful message", "1700000000.000100", 0)},
		}
		page1.ResponseMetaData.NextCursor = "cursor-2"
		page2 := slackapi.GetConversationHistoryResponse{
			Messages: []slackapi.Message{message("U1", "second page useful message", "1700000001.000100", 0)},
		}

		fake := &fakeAPI{
			channels: map[string]string{"C01": "tech-infra"},
			history:  map[string][]slackapi.GetConversationHistoryResponse{"C01": {page1, page2}},
		}

		items, errs := collect(t, newTestConnector(fake, "C01"))
		assert.Empty(t, errs)
		assert.Len(t, items, 2)
	})
}
