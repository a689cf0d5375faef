// Package attachments stores file records keyed by id and by owning
// conversation. No business logic lives here beyond storage; in particular
// there is no dedup or content hashing, so two identical files produce two
// independent records.
package attachments

import (
	"context"

	"github.com/earthchat/earth/pkg/chat"
)

// Repository is the attachment store contract.
type Repository interface {
	Save(ctx context.Context, record chat.Attachment) error
	GetByConversation(ctx context.Context, conversationID string) ([]chat.Attachment, error)
	Delete(ctx context.Context, id string) error
	DeleteByConversation(ctx context.Context, conversationID string) error
}
