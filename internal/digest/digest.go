// Package digest posts periodic routing-activity summaries to an ops channel.
package digest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/audit"
)

// Poster is the outbound surface the digest needs: a plain channel message.
type Poster interface {
	PostMessage(ctx context.Context, channelID, text, threadTS string) error
}

// Summarizer provides aggregated routing activity (implemented by the
// audit store).
type Summarizer interface {
	Summarize(ctx context.Context, since time.Time) (audit.Summary, error)
}

// Digest periodically posts an activity summary.
type Digest struct {
	store     Summarizer
	poster    Poster
	channelID string
	schedule  string
	out       io.Writer
}

// Opts holds parameters for creating a Digest.
type Opts struct {
	Store     Summarizer
	Poster    Poster
	ChannelID string
	Schedule  string    // 5-field cron expression
	Out       io.Writer // defaults to os.Stdout
}

// New creates a Digest.
func New(opts Opts) (*Digest, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("digest: store is required")
	}
	if opts.Poster == nil {
		return nil, fmt.Errorf("digest: poster is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("digest: channel id is required")
	}
	if _, err := cronParser.Parse(opts.Schedule); err != nil {
		return nil, fmt.Errorf("digest: parse schedule %q: %w", opts.Schedule, err)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Digest{
		store:     opts.Store,
		poster:    opts.Poster,
		channelID: opts.ChannelID,
		schedule:  opts.Schedule,
		out:       out,
	}, nil
}

// Run posts a digest at every scheduled fire time until the context is
// cancelled. Post failures are logged and the schedule continues.
func (d *Digest) Run(ctx context.Context) {
	for {
		wait := nextCronDuration(d.schedule)
		if wait <= 0 {
			wait = time.Minute
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err := d.PostOnce(ctx); err != nil {
			log.Printf("digest: post: %v", err)
		}
	}
}

// PostOnce summarizes the last 24 hours and posts the result.
func (d *Digest) PostOnce(ctx context.Context) error {
	until := time.Now()
	since := until.Add(-24 * time.Hour)

	sum, err := d.store.Summarize(ctx, since)
	if err != nil {
		return fmt.Errorf("digest: summarize: %w", err)
	}
	text := Format(sum, since, until)
	if err := d.poster.PostMessage(ctx, d.channelID, text, ""); err != nil {
		return fmt.Errorf("digest: post message: %w", err)
	}
	fmt.Fprintf(d.out, "digest: posted to %s (%d events)\n", d.channelID, sum.Handled)
	return nil
}

// Format renders a summary as a chat message.
func Format(sum audit.Summary, since, until time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Routing digest* %s – %s\n",
		since.Format("Jan 2 15:04"), until.Format("Jan 2 15:04"))
	fmt.Fprintf(&b, "Events handled: %d (replied to %d, ignored %d)\n",
		sum.Handled, sum.Responded, sum.Ignored)
	fmt.Fprintf(&b, "Threads: %d newly supervised, %d continued\n",
		sum.NewThreads, sum.Continued)
	if sum.Responded > 0 {
		fmt.Fprintf(&b, "Avg response cycle: %.0fms\n", sum.AvgElapsedMS)
	}
	return strings.TrimRight(b.String(), "\n")
}
