// Package router classifies inbound chat events and orchestrates the
// response cycle: acknowledgement, history reconstruction, backend
// invocation, and the threaded reply.
package router

import (
	"github.com/slack-go/slack"

	"github.com/zulandar/switchboard/internal/mention"
)

// EventType distinguishes plain messages from explicit app mentions.
type EventType string

// Event types delivered by the platform.
const (
	EventMessage EventType = "message"
	EventMention EventType = "app_mention"
)

// Role classifies the author of a conversation history entry.
type Role string

// History entry roles.
const (
	RoleUser     Role = "user"      // a human author
	RoleBot      Role = "bot"       // this bot
	RoleOtherBot Role = "other_bot" // some other bot
	RoleOther    Role = "other"     // system/subtype messages
)

// HistoryEntry is one role-tagged message from a thread, oldest-first in a
// fetched sequence. BotName is set only for bot-authored entries whose bot
// profile is known.
type HistoryEntry struct {
	Role    Role
	BotName string
	Content string
}

// RawEvent is the absent-tolerant payload handed to the dispatcher by a
// transport. Every field may be empty; normalization defaults rather than
// failing.
type RawEvent struct {
	Type        string
	UserID      string
	BotID       string // non-empty means the message came from a bot, including self
	MessageTS   string
	ThreadTS    string
	ChannelID   string
	ChannelType string
	Text        string
	Blocks      slack.Blocks
}

// Event is the normalized, typed form all routing logic operates on. It is
// constructed per inbound message and discarded after the response cycle.
type Event struct {
	Type        EventType
	UserID      string
	BotID       string
	MessageTS   string
	ThreadTS    string
	ChannelID   string
	ChannelType string
	Text        string
	Mentions    map[string]struct{}
}

// Normalize converts a raw payload into an Event. A message that starts a
// new thread has no thread_ts of its own, so ThreadTS falls back to the
// message timestamp. Mentions come from rich-text blocks when present,
// otherwise from the raw text (app_mention payloads carry the mention only
// there).
func Normalize(raw RawEvent) Event {
	ev := Event{
		Type:        EventType(raw.Type),
		UserID:      raw.UserID,
		BotID:       raw.BotID,
		MessageTS:   raw.MessageTS,
		ThreadTS:    raw.ThreadTS,
		ChannelID:   raw.ChannelID,
		ChannelType: raw.ChannelType,
		Text:        raw.Text,
	}
	if ev.Type == "" {
		ev.Type = EventMessage
	}
	if ev.ThreadTS == "" {
		ev.ThreadTS = ev.MessageTS
	}
	ev.Mentions = mention.Extract(raw.Blocks)
	if len(ev.Mentions) == 0 {
		ev.Mentions = mention.FromText(raw.Text)
	}
	return ev
}

// IsThreadReply reports whether the event is a reply within an existing
// thread rather than a thread root.
func (e Event) IsThreadReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.MessageTS
}
