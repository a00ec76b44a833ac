// Package mention extracts user mentions from Slack message content.
package mention

import (
	"regexp"

	"github.com/slack-go/slack"
)

// Extract walks Block Kit rich-text blocks and returns the set of user IDs
// mentioned in them. Non-mention elements (text, links, emoji, channel
// references) are ignored. Malformed or partially-absent structure is
// skipped, never an error: an event with no parseable blocks yields an
// empty set.
func Extract(blocks slack.Blocks) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, block := range blocks.BlockSet {
		rt, ok := block.(*slack.RichTextBlock)
		if !ok || rt == nil {
			continue
		}
		for _, el := range rt.Elements {
			collectElement(el, ids)
		}
	}
	return ids
}

// collectElement gathers user IDs from a single rich-text element,
// descending into lists.
func collectElement(el slack.RichTextElement, ids map[string]struct{}) {
	switch v := el.(type) {
	case *slack.RichTextSection:
		if v == nil {
			return
		}
		collectSection(v.Elements, ids)
	case *slack.RichTextQuote:
		if v == nil {
			return
		}
		collectSection(v.Elements, ids)
	case *slack.RichTextList:
		if v == nil {
			return
		}
		for _, sub := range v.Elements {
			collectElement(sub, ids)
		}
	}
}

// collectSection gathers user IDs from section-level inline elements.
func collectSection(elements []slack.RichTextSectionElement, ids map[string]struct{}) {
	for _, ie := range elements {
		if u, ok := ie.(*slack.RichTextSectionUserElement); ok && u != nil && u.UserID != "" {
			ids[u.UserID] = struct{}{}
		}
	}
}

// userRefRe matches mrkdwn user references like <@U123ABC> or <@U123ABC|name>.
var userRefRe = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// FromText extracts user mentions from raw mrkdwn text. Used as a fallback
// for event payloads that carry no rich-text blocks (app_mention events
// deliver the mention only in the text field).
func FromText(text string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, m := range userRefRe.FindAllStringSubmatch(text, -1) {
		ids[m[1]] = struct{}{}
	}
	return ids
}
