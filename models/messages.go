package models

// Role is the speaker of one conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ConversationTurn is one message of the transcript sent to the model.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered transcript. Order is significant and must be preserved.
type Conversation []ConversationTurn

// With returns a copy of c with turns appended. The receiver is never modified.
func (c Conversation) With(turns ...ConversationTurn) Conversation {
	out := make(Conversation, 0, len(c)+len(turns))
	out = append(out, c...)
	return append(out, turns...)
}
