package backend

import (
	"context"
	"testing"

	"google.golang.org/genai"

	"github.com/zulandar/switchboard/internal/router"
)

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "", "gemini-2.0-flash"); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestConversationContents(t *testing.T) {
	history := []router.HistoryEntry{
		{Role: router.RoleUser, Content: "what broke?"},
		{Role: router.RoleBot, Content: "the deploy failed"},
		{Role: router.RoleOtherBot, BotName: "deploybot", Content: "build #42 red"},
		{Role: router.RoleOtherBot, Content: "ping"},
		{Role: router.RoleOther, Content: "user joined"},
	}

	contents := conversationContents("can you retry?", history)
	if len(contents) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(contents))
	}

	wantRoles := []genai.Role{
		genai.RoleUser, genai.RoleModel, genai.RoleUser, genai.RoleUser, genai.RoleUser, genai.RoleUser,
	}
	for i, want := range wantRoles {
		if genai.Role(contents[i].Role) != want {
			t.Errorf("turn %d role = %q, want %q", i, contents[i].Role, want)
		}
	}

	if got := contents[2].Parts[0].Text; got != "[deploybot] build #42 red" {
		t.Errorf("other-bot turn = %q", got)
	}
	if got := contents[3].Parts[0].Text; got != "[another bot] ping" {
		t.Errorf("unnamed other-bot turn = %q", got)
	}
	if got := contents[5].Parts[0].Text; got != "can you retry?" {
		t.Errorf("final turn = %q, want the triggering message", got)
	}
}

func TestConversationContents_NoHistory(t *testing.T) {
	contents := conversationContents("hello", nil)
	if len(contents) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(contents))
	}
	if genai.Role(contents[0].Role) != genai.RoleUser {
		t.Errorf("role = %q, want user", contents[0].Role)
	}
}
