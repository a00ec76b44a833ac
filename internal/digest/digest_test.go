package digest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/audit"
)

type fakeSummarizer struct {
	sum audit.Summary
	err error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, since time.Time) (audit.Summary, error) {
	return f.sum, f.err
}

type fakePoster struct {
	channelID string
	text      string
	err       error
}

func (f *fakePoster) PostMessage(ctx context.Context, channelID, text, threadTS string) error {
	f.channelID = channelID
	f.text = text
	return f.err
}

func TestNew_Required(t *testing.T) {
	store := &fakeSummarizer{}
	poster := &fakePoster{}

	if _, err := New(Opts{Poster: poster, ChannelID: "C1", Schedule: "0 9 * * *"}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(Opts{Store: store, ChannelID: "C1", Schedule: "0 9 * * *"}); err == nil {
		t.Fatal("expected error for nil poster")
	}
	if _, err := New(Opts{Store: store, Poster: poster, Schedule: "0 9 * * *"}); err == nil {
		t.Fatal("expected error for empty channel")
	}
	if _, err := New(Opts{Store: store, Poster: poster, ChannelID: "C1", Schedule: "not a cron"}); err == nil {
		t.Fatal("expected error for bad schedule")
	}
}

func TestPostOnce(t *testing.T) {
	store := &fakeSummarizer{sum: audit.Summary{
		Handled: 10, Responded: 6, Ignored: 4, NewThreads: 2, Continued: 4, AvgElapsedMS: 850,
	}}
	poster := &fakePoster{}
	d, err := New(Opts{Store: store, Poster: poster, ChannelID: "C-ops", Schedule: "0 9 * * *", Out: io.Discard})
	if err != nil {
		t.Fatalf("new digest: %v", err)
	}

	if err := d.PostOnce(context.Background()); err != nil {
		t.Fatalf("post once: %v", err)
	}
	if poster.channelID != "C-ops" {
		t.Errorf("channel = %q", poster.channelID)
	}
	for _, want := range []string{"Events handled: 10", "replied to 6", "2 newly supervised", "850ms"} {
		if !strings.Contains(poster.text, want) {
			t.Errorf("digest text missing %q:\n%s", want, poster.text)
		}
	}
}

func TestPostOnce_SummarizeError(t *testing.T) {
	store := &fakeSummarizer{err: errors.New("db gone")}
	d, err := New(Opts{Store: store, Poster: &fakePoster{}, ChannelID: "C1", Schedule: "0 9 * * *", Out: io.Discard})
	if err != nil {
		t.Fatalf("new digest: %v", err)
	}
	if err := d.PostOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormat_OmitsLatencyWithoutReplies(t *testing.T) {
	text := Format(audit.Summary{Handled: 3, Ignored: 3}, time.Now().Add(-time.Hour), time.Now())
	if strings.Contains(text, "Avg response cycle") {
		t.Errorf("latency line should be omitted when nothing was replied to:\n%s", text)
	}
}

func TestNextCronDuration(t *testing.T) {
	if d := nextCronDuration("bogus"); d != 0 {
		t.Errorf("bad expression should yield 0, got %v", d)
	}
	d := nextCronDuration("* * * * *")
	if d <= 0 || d > time.Minute {
		t.Errorf("every-minute schedule should fire within a minute, got %v", d)
	}
}
