package askai

import "testing"

func TestIsBlank(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   \n\t", true},
		{"<|user|>hi<|end|>", false},
		{" x ", false},
	}
	for _, tt := range tests {
		if got := IsBlank(tt.in); got != tt.want {
			t.Errorf("IsBlank(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTranscript(t *testing.T) {
	transcript := "<|system|>be brief<|end|>" +
		"<|user|>list files<|end|><|assistant|>ls" +
		"<|user|>hidden too<|end|><|assistant|>ls -a"

	turns := ParseTranscript(transcript)
	want := []Turn{
		{RoleSystem, "be brief", true},
		{RoleUser, "list files", true},
		{RoleAssistant, "ls", false},
		{RoleUser, "hidden too", true},
		{RoleAssistant, "ls -a", false},
	}
	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d: %+v", len(turns), len(want), turns)
	}
	for i := range want {
		if turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, turns[i], want[i])
		}
	}
}

func TestParseTranscriptIgnoresLeadingText(t *testing.T) {
	turns := ParseTranscript("garbage<|user|>q<|end|>")
	if len(turns) != 1 || turns[0].Role != RoleUser || turns[0].Content != "q" {
		t.Errorf("unexpected turns: %+v", turns)
	}
}

func TestParseTranscriptEmpty(t *testing.T) {
	if turns := ParseTranscript(""); len(turns) != 0 {
		t.Errorf("expected no turns, got %+v", turns)
	}
	if turns := ParseTranscript("no markers here"); len(turns) != 0 {
		t.Errorf("expected no turns, got %+v", turns)
	}
}

func TestRoleTag(t *testing.T) {
	if RoleSystem.Tag() != SystemTag || RoleUser.Tag() != UserTag || RoleAssistant.Tag() != AssistantTag {
		t.Error("role tags do not match delimiters")
	}
	if Role("tool").Tag() != "" {
		t.Error("unknown role should have no tag")
	}
}
