package entities

// Chat is a multi-party practice session between the learner and agents.
type Chat struct {
	Model
	Name     string         `gorm:"size:256" json:"name"`
	Type     string         `gorm:"size:50;default:'conversation'" json:"type"`
	Language string         `gorm:"size:16" json:"language,omitempty"`
	Topic    string         `gorm:"type:text" json:"topic,omitempty"`
	Config   map[string]any `gorm:"serializer:json;type:text" json:"config,omitempty"`
	Members  []ChatMember   `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (Chat) TableName() string {
	return "chats"
}

// ResetServerFields drops inline members; they are added through addMember.
func (c *Chat) ResetServerFields() {
	c.Model.ResetServerFields()
	c.Members = nil
}

// ChatMember is a learner or agent taking part in a chat.
type ChatMember struct {
	Model
	ChatID   string         `gorm:"index;size:36;not null" json:"chatId"`
	UserID   string         `gorm:"size:100;not null" json:"userId"`   // Agent or learner identifier
	UserType string         `gorm:"size:20;not null" json:"userType"` // "User" or "Agent"
	Config   map[string]any `gorm:"serializer:json;type:text" json:"config,omitempty"`
}

func (ChatMember) TableName() string {
	return "chat_members"
}

type ChatMessageState string

const (
	ChatMessageStatePending   ChatMessageState = "pending"
	ChatMessageStateCompleted ChatMessageState = "completed"
)

// ChatMessage is one turn in a chat.
type ChatMessage struct {
	Model
	ChatID   string           `gorm:"index;size:36;not null" json:"chatId"`
	MemberID *string          `gorm:"index;size:36" json:"memberId,omitempty"`
	Role     string           `gorm:"size:20;not null" json:"role"`
	Content  string           `gorm:"type:text" json:"content"`
	State    ChatMessageState `gorm:"size:20;default:'completed'" json:"state"`
	Extra    map[string]any   `gorm:"serializer:json;type:text" json:"extra,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
