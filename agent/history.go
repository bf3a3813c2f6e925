package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Message is one normalized transcript entry. Only user and assistant turns
// survive normalization; tool traffic never enters the stored transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NormalizeTranscript parses a client-supplied chat history. Two transcript
// shapes are accepted:
//
//	pairs:       [["question", "answer"], ...]
//	role-tagged: [{"role": "user", "content": "..."}, ...]
//
// Entries that fit neither shape, or that carry an unknown role, are dropped
// and counted rather than guessed at. The returned int is the drop count.
func NormalizeTranscript(raw []byte) ([]Message, int, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, 0, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, 0, fmt.Errorf("history must be a JSON array: %v", err)
	}

	var out []Message
	dropped := 0
	for _, entry := range entries {
		msgs, ok := normalizeEntry(entry)
		if !ok {
			dropped++
			continue
		}
		out = append(out, msgs...)
	}
	return out, dropped, nil
}

// normalizeEntry tries the role-tagged object shape first, then the pair
// shape. It reports false when the entry contributes no messages.
func normalizeEntry(raw json.RawMessage) ([]Message, bool) {
	var tagged struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &tagged); err == nil && tagged.Role != "" {
		role, ok := canonicalRole(tagged.Role)
		if !ok || strings.TrimSpace(tagged.Content) == "" {
			return nil, false
		}
		return []Message{{Role: role, Content: tagged.Content}}, true
	}

	var pair []string
	if err := json.Unmarshal(raw, &pair); err == nil && len(pair) >= 1 && len(pair) <= 2 {
		var msgs []Message
		if strings.TrimSpace(pair[0]) != "" {
			msgs = append(msgs, Message{Role: RoleUser, Content: pair[0]})
		}
		if len(pair) == 2 && strings.TrimSpace(pair[1]) != "" {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: pair[1]})
		}
		if len(msgs) == 0 {
			return nil, false
		}
		return msgs, true
	}

	return nil, false
}

// canonicalRole folds the role aliases seen in client transcripts onto the
// two roles the planner understands.
func canonicalRole(role string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "human":
		return RoleUser, true
	case "assistant", "ai", "bot":
		return RoleAssistant, true
	}
	return "", false
}

// SchemaMessages converts normalized history into planner messages.
func SchemaMessages(history []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
