// Package askai defines the transcript format and configuration shared by the
// ask command and its inference backends.
//
// A transcript is a single string of role-tagged turns using the Phi-3 chat
// delimiters. It is persisted verbatim between invocations and replayed to the
// model as the prompt prefix.
package askai

import "strings"

// Delimiter markers used to frame turns in a transcript.
const (
	SystemTag    = "<|system|>"
	UserTag      = "<|user|>"
	AssistantTag = "<|assistant|>"
	EndTag       = "<|end|>"
)

// Role identifies the author of a turn.
type Role string

const (
	// RoleSystem is the fixed preamble turn, present once at the start.
	RoleSystem Role = "system"
	// RoleUser is a question asked on the command line.
	RoleUser Role = "user"
	// RoleAssistant is a generated answer.
	RoleAssistant Role = "assistant"
)

// Tag returns the opening delimiter for the role.
func (r Role) Tag() string {
	switch r {
	case RoleSystem:
		return SystemTag
	case RoleUser:
		return UserTag
	case RoleAssistant:
		return AssistantTag
	}
	return ""
}

// Turn is one role-tagged segment of a transcript.
type Turn struct {
	Role    Role
	Content string
	// Closed reports whether the turn ended with an explicit <|end|> marker.
	// Assistant turns are persisted without one and are closed implicitly by
	// the next opening marker.
	Closed bool
}

// IsBlank reports whether a transcript holds no prior conversation.
func IsBlank(transcript string) bool {
	return strings.TrimSpace(transcript) == ""
}

var openTags = []struct {
	tag  string
	role Role
}{
	{SystemTag, RoleSystem},
	{UserTag, RoleUser},
	{AssistantTag, RoleAssistant},
}

// ParseTranscript splits a transcript into its turns.
// Text before the first opening marker is ignored.
func ParseTranscript(transcript string) []Turn {
	var turns []Turn
	rest := transcript
	for {
		start, role, tagLen := nextOpenTag(rest)
		if start < 0 {
			return turns
		}
		rest = rest[start+tagLen:]

		next, _, _ := nextOpenTag(rest)
		body := rest
		if next >= 0 {
			body = rest[:next]
		}

		turn := Turn{Role: role, Content: body}
		if i := strings.Index(body, EndTag); i >= 0 {
			turn.Content = body[:i]
			turn.Closed = true
		}
		turns = append(turns, turn)

		if next < 0 {
			return turns
		}
		rest = rest[next:]
	}
}

// nextOpenTag finds the earliest opening marker in s.
func nextOpenTag(s string) (int, Role, int) {
	best := -1
	var role Role
	var tagLen int
	for _, ot := range openTags {
		i := strings.Index(s, ot.tag)
		if i >= 0 && (best < 0 || i < best) {
			best = i
			role = ot.role
			tagLen = len(ot.tag)
		}
	}
	return best, role, tagLen
}
