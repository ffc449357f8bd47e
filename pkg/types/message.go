package types

import (
	"encoding/json"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	// One of system, user, assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// StopSequences accepts either a single JSON string or an array of strings.
type StopSequences []string

func (s *StopSequences) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = StopSequences{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("stop must be a string or an array of strings")
	}
	*s = many
	return nil
}
