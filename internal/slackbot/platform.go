package slackbot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// apiClient abstracts the Slack Web API methods the platform surface uses,
// enabling test mocks.
type apiClient interface {
	AddReactionContext(ctx context.Context, name string, item slackapi.ItemRef) error
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Platform exposes the Slack Web API as the router's platform surface:
// reaction acknowledgement and threaded replies, with rate-limit retry.
type Platform struct {
	client apiClient
}

// NewPlatform creates a Platform over a Slack API client.
func NewPlatform(client apiClient) (*Platform, error) {
	if client == nil {
		return nil, fmt.Errorf("slackbot: api client is required")
	}
	return &Platform{client: client}, nil
}

// AddReaction adds an emoji reaction to the message at timestamp.
func (p *Platform) AddReaction(ctx context.Context, channelID, emoji, timestamp string) error {
	err := retryOnRateLimit(ctx, func() error {
		return p.client.AddReactionContext(ctx, emoji, slackapi.NewRefToMessage(channelID, timestamp))
	})
	if err != nil {
		return fmt.Errorf("slackbot: add reaction: %w", err)
	}
	return nil
}

// PostMessage sends text to the channel, threaded when threadTS is set.
func (p *Platform) PostMessage(ctx context.Context, channelID, text, threadTS string) error {
	options := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if threadTS != "" {
		options = append(options, slackapi.MsgOptionTS(threadTS))
	}
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := p.client.PostMessageContext(ctx, channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slackbot: post message: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit
// errors. It respects context cancellation and the RetryAfter duration from
// Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err // not a rate limit error, don't retry
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
