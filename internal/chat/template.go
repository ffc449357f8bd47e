package chat

import (
	"fmt"
	"sort"
	"strings"

	"chatd/pkg/types"
)

// Template renders a conversation into a single prompt string.
type Template interface {
	Name() string
	Render(messages []types.ChatMessage) string
	// Stops are sequences that end the assistant turn for this template.
	Stops() []string
}

const (
	TemplateChatML = "chatml"
	TemplatePlain  = "plain"
)

var templates = map[string]Template{
	TemplateChatML: chatML{},
	TemplatePlain:  plain{},
}

// LookupTemplate returns the named template. An empty name selects chatml.
func LookupTemplate(name string) (Template, error) {
	if name == "" {
		name = TemplateChatML
	}
	t, ok := templates[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template %q (known: %s)", name, strings.Join(TemplateNames(), ", "))
	}
	return t, nil
}

// TemplateNames lists the registered templates in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for n := range templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// chatML is the <|im_start|>role ... <|im_end|> format used by most chat
// tuned GGUF models.
type chatML struct{}

func (chatML) Name() string { return TemplateChatML }

func (chatML) Stops() []string { return []string{"<|im_end|>"} }

func (chatML) Render(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteByte('\n')
		b.WriteString(stripChatMLMarkers(m.Content))
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}

var chatMLMarkers = strings.NewReplacer("<|im_start|>", "", "<|im_end|>", "")

// stripChatMLMarkers removes turn markers from message content so a message
// cannot open or close turns of its own. Removal repeats until stable, since
// deleting one marker can join the halves of another.
func stripChatMLMarkers(content string) string {
	for {
		out := chatMLMarkers.Replace(content)
		if out == content {
			return out
		}
		content = out
	}
}

type plain struct{}

func (plain) Name() string { return TemplatePlain }

func (plain) Stops() []string { return []string{"\nUser:", "\nSystem:"} }

func (plain) Render(messages []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString("Assistant:")
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case types.RoleSystem:
		return "System"
	case types.RoleAssistant:
		return "Assistant"
	default:
		return "User"
	}
}
