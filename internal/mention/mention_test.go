package mention

import (
	"testing"

	"github.com/slack-go/slack"
)

func userEl(id string) *slack.RichTextSectionUserElement {
	return &slack.RichTextSectionUserElement{Type: slack.RTSEUser, UserID: id}
}

func textEl(s string) *slack.RichTextSectionTextElement {
	return &slack.RichTextSectionTextElement{Type: slack.RTSEText, Text: s}
}

func section(elements ...slack.RichTextSectionElement) *slack.RichTextSection {
	return &slack.RichTextSection{Type: slack.RTESection, Elements: elements}
}

func richText(elements ...slack.RichTextElement) slack.Blocks {
	return slack.Blocks{BlockSet: []slack.Block{
		&slack.RichTextBlock{Type: slack.MBTRichText, Elements: elements},
	}}
}

func TestExtract_Empty(t *testing.T) {
	if got := Extract(slack.Blocks{}); len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
}

func TestExtract_UserMentions(t *testing.T) {
	blocks := richText(section(
		textEl("hey "),
		userEl("U111"),
		textEl(" and "),
		userEl("U222"),
		textEl(" please look"),
	))

	got := Extract(blocks)
	if len(got) != 2 {
		t.Fatalf("expected 2 mentions, got %v", got)
	}
	for _, id := range []string{"U111", "U222"} {
		if _, ok := got[id]; !ok {
			t.Errorf("missing mention %s", id)
		}
	}
}

func TestExtract_DuplicatesCollapse(t *testing.T) {
	blocks := richText(section(userEl("U111"), userEl("U111")))
	if got := Extract(blocks); len(got) != 1 {
		t.Errorf("expected set of 1, got %v", got)
	}
}

func TestExtract_NestedListAndQuote(t *testing.T) {
	blocks := richText(
		&slack.RichTextList{
			Type:     slack.RTEList,
			Elements: []slack.RichTextElement{section(userEl("U333"))},
		},
		&slack.RichTextQuote{
			Type:     slack.RTEQuote,
			Elements: []slack.RichTextSectionElement{userEl("U444")},
		},
	)

	got := Extract(blocks)
	if _, ok := got["U333"]; !ok {
		t.Error("missing mention inside list")
	}
	if _, ok := got["U444"]; !ok {
		t.Error("missing mention inside quote")
	}
}

func TestExtract_IgnoresOtherBlocks(t *testing.T) {
	blocks := slack.Blocks{BlockSet: []slack.Block{
		slack.NewDividerBlock(),
		&slack.RichTextBlock{Type: slack.MBTRichText}, // no elements
	}}
	if got := Extract(blocks); len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
}

func TestFromText(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", nil},
		{"no mentions here", nil},
		{"<@U111> hello", []string{"U111"}},
		{"<@U111|alice> meet <@U222>", []string{"U111", "U222"}},
		{"escaped <@U111> twice <@U111>", []string{"U111"}},
	}
	for _, tt := range tests {
		got := FromText(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("FromText(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for _, id := range tt.want {
			if _, ok := got[id]; !ok {
				t.Errorf("FromText(%q) missing %s", tt.text, id)
			}
		}
	}
}
