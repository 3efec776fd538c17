package entities

// Conversation is a one-to-one exchange with a single AI engine.
type Conversation struct {
	Model
	Type          string         `gorm:"size:50;default:'gpt'" json:"type"`
	Engine        string         `gorm:"size:50" json:"engine"`
	Name          string         `gorm:"size:256" json:"name"`
	Language      string         `gorm:"size:16" json:"language,omitempty"`
	Configuration map[string]any `gorm:"serializer:json;type:text" json:"configuration,omitempty"`
	Messages      []Message      `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ResetServerFields drops inline messages; they are added through addMessage.
func (c *Conversation) ResetServerFields() {
	c.Model.ResetServerFields()
	c.Messages = nil
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	switch r {
	case MessageRoleSystem, MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

// Message is one turn in a conversation with an AI engine.
type Message struct {
	Model
	ConversationID string         `gorm:"index;size:36;not null" json:"conversationId"`
	Role           MessageRole    `gorm:"size:20;not null" json:"role"`
	Content        string         `gorm:"type:text" json:"content"`
	Extra          map[string]any `gorm:"serializer:json;type:text" json:"extra,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
