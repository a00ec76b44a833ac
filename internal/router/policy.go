package router

import (
	"context"
	"fmt"

	"github.com/zulandar/switchboard/internal/registry"
)

// channelTypeIM is Slack's channel_type for a direct message.
const channelTypeIM = "im"

// Decision is the routing outcome for a single event. Decisions are
// computed per event, never stored.
type Decision int

// Routing outcomes, first match wins in Policy.Decide.
const (
	Ignore Decision = iota
	NewSupervision
	ContinueSupervision
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case NewSupervision:
		return "new_supervision"
	case ContinueSupervision:
		return "continue_supervision"
	default:
		return "ignore"
	}
}

// Policy decides whether an event warrants a response. The rule order is
// deliberate: loop prevention and misattribution short-circuit before any
// registry lookup, so a message addressed to someone else can never
// spuriously start supervision.
type Policy struct {
	registry  registry.Registry
	botUserID string
}

// NewPolicy creates a Policy for the given bot identity.
func NewPolicy(reg registry.Registry, botUserID string) (*Policy, error) {
	if reg == nil {
		return nil, fmt.Errorf("router: policy: registry is required")
	}
	if botUserID == "" {
		return nil, fmt.Errorf("router: policy: bot user id is required")
	}
	return &Policy{registry: reg, botUserID: botUserID}, nil
}

// Decide classifies a normalized event:
//  1. Bot-authored (any bot, including self) → Ignore
//  2. No attributable user, or authored by this bot's own user → Ignore
//  3. Mentions present but none of them this bot → Ignore
//  4. Not mentioned, not a DM, thread not supervised → Ignore
//  5. Mentioned or DM, thread not yet supervised → NewSupervision
//  6. Otherwise → ContinueSupervision
func (p *Policy) Decide(ctx context.Context, ev Event) Decision {
	if ev.BotID != "" {
		return Ignore
	}
	if ev.UserID == "" || ev.UserID == p.botUserID {
		return Ignore
	}
	_, mentioned := ev.Mentions[p.botUserID]
	if len(ev.Mentions) > 0 && !mentioned {
		return Ignore
	}

	direct := ev.ChannelType == channelTypeIM
	active := p.registry.IsActive(ctx, ev.ThreadTS)

	switch {
	case !mentioned && !direct && !active:
		return Ignore
	case (mentioned || direct) && !active:
		return NewSupervision
	default:
		return ContinueSupervision
	}
}
