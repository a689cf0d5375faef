package chat

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single entry in a conversation. Content is mutable: the user
// can edit it, and the engine appends to it incrementally while a response is
// streaming. Attachments is always present, possibly empty, in the order the
// files were attached.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

func NewUserMessage(text string, attachments ...Attachment) Message {
	if attachments == nil {
		attachments = []Attachment{}
	}
	return Message{
		Role:        RoleUser,
		Content:     text,
		Attachments: attachments,
	}
}

func NewModelMessage(text string) Message {
	return Message{
		Role:        RoleModel,
		Content:     text,
		Attachments: []Attachment{},
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Attachments = make([]Attachment, len(m.Attachments))
	copy(out.Attachments, m.Attachments)
	return out
}

// CloneMessages deep-copies a message slice.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}
