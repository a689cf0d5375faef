package chat

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DocumentVersion is the current persisted schema version. The original data
// had no version tag at all; documents without one decode as version 0 and
// are accepted as the legacy shape.
const DocumentVersion = 1

// Document is the full durable state for one user: the ordered conversation
// list, the active-conversation pointer, and the system instruction.
type Document struct {
	Version       int             `json:"version"`
	ActiveID      string          `json:"activeID,omitempty"`
	SystemPrompt  string          `json:"systemPrompt,omitempty"`
	Conversations []*Conversation `json:"conversations"`
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Version:       d.Version,
		ActiveID:      d.ActiveID,
		SystemPrompt:  d.SystemPrompt,
		Conversations: make([]*Conversation, len(d.Conversations)),
	}
	for i, c := range d.Conversations {
		out.Conversations[i] = c.Clone()
	}
	return out
}

// EncodeDocument serializes a document, stamping the current schema version.
func EncodeDocument(d *Document) (string, error) {
	if d == nil {
		return "", errors.New("document is nil")
	}
	d.Version = DocumentVersion
	b, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode conversation document")
	}
	return string(b), nil
}

// DecodeDocument parses a persisted document. Versions newer than the current
// schema are rejected so an old binary never mangles newer data.
func DecodeDocument(raw string) (*Document, error) {
	var d Document
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, errors.Wrap(err, "failed to decode conversation document")
	}
	if d.Version > DocumentVersion {
		return nil, errors.Errorf("conversation document version %d is newer than supported version %d", d.Version, DocumentVersion)
	}
	for _, c := range d.Conversations {
		if c.Messages == nil {
			c.Messages = []Message{}
		}
		for i := range c.Messages {
			if c.Messages[i].Attachments == nil {
				c.Messages[i].Attachments = []Attachment{}
			}
		}
	}
	return &d, nil
}
