// Package history reconstructs bounded, role-tagged conversation history
// from a Slack thread.
package history

import (
	"context"
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/zulandar/switchboard/internal/router"
)

// DefaultMaxEntries bounds history when the caller passes no usable limit.
// Unbounded retrieval is deliberately not supported; every entry costs
// backend tokens.
const DefaultMaxEntries = 20

// repliesClient abstracts the single Slack API method Fetcher uses,
// enabling test mocks.
type repliesClient interface {
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
}

// Fetcher retrieves thread replies and normalizes them into history
// entries. Fetch fails closed: any transport error is logged and yields an
// empty sequence, never an error to the caller.
type Fetcher struct {
	client    repliesClient
	botUserID string
}

// FetcherOpts holds parameters for creating a Fetcher.
type FetcherOpts struct {
	Client    repliesClient
	BotUserID string
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts FetcherOpts) (*Fetcher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("history: client is required")
	}
	if opts.BotUserID == "" {
		return nil, fmt.Errorf("history: bot user id is required")
	}
	return &Fetcher{client: opts.Client, botUserID: opts.BotUserID}, nil
}

// Fetch returns up to limit entries from the thread rooted at threadTS,
// oldest first, restricted to messages strictly before beforeTS so the
// triggering message is not duplicated into its own context. A limit of
// zero or less means DefaultMaxEntries.
func (f *Fetcher) Fetch(ctx context.Context, channelID, threadTS, beforeTS string, limit int) []router.HistoryEntry {
	if limit <= 0 {
		limit = DefaultMaxEntries
	}

	msgs, _, _, err := f.client.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: threadTS,
		Latest:    beforeTS,
		Inclusive: false,
		Limit:     limit,
	})
	if err != nil {
		log.Printf("history: conversation replies [ch=%s thread=%s]: %v", channelID, threadTS, err)
		return nil
	}

	entries := make([]router.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		// Server-side Latest is not inclusive, but guard here too so a
		// lenient fake or an API quirk can never leak the trigger back in.
		if m.Timestamp >= beforeTS {
			continue
		}
		entries = append(entries, f.normalize(m))
	}

	// Replies arrive oldest first; when more than the bound survive the
	// filter, keep the most recent tail.
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries
}

// normalize converts one reply into a role-tagged entry.
func (f *Fetcher) normalize(m slack.Message) router.HistoryEntry {
	entry := router.HistoryEntry{Content: m.Text}
	switch {
	case m.User == f.botUserID:
		entry.Role = router.RoleBot
	case m.BotID != "":
		entry.Role = router.RoleOtherBot
	case m.User != "":
		entry.Role = router.RoleUser
	default:
		entry.Role = router.RoleOther
	}
	if m.BotProfile != nil {
		entry.BotName = m.BotProfile.Name
	}
	return entry
}
