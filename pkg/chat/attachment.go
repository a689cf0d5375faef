package chat

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// maxAttachmentSize bounds what we are willing to decode into memory.
const maxAttachmentSize = 20 * 1024 * 1024

// Attachment is a user-supplied file associated with a message. Text files
// carry their decoded content; binary and image files carry a base64-encoded
// representation. ConversationID stays empty until the attachment is first
// persisted under a conversation.
type Attachment struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationID,omitempty"`
	Name           string `json:"name"`
	MediaType      string `json:"mediaType"`
	Content        string `json:"content"`
	Size           int64  `json:"size"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MediaType, "image/")
}

// NewAttachmentFromFile reads and decodes a local file into an Attachment.
func NewAttachmentFromFile(path string) (Attachment, error) {
	file, err := os.Open(path)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "failed to open file")
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	fileInfo, err := file.Stat()
	if err != nil {
		return Attachment{}, errors.Wrap(err, "failed to stat file")
	}
	if fileInfo.Size() > maxAttachmentSize {
		return Attachment{}, errors.Errorf("attachment %s exceeds 20MB limit", fileInfo.Name())
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "failed to read file content")
	}

	mediaType := mediaTypeFromExtension(filepath.Ext(path))
	att := Attachment{
		ID:        uuid.NewString(),
		Name:      fileInfo.Name(),
		MediaType: mediaType,
		Size:      fileInfo.Size(),
	}
	if strings.HasPrefix(mediaType, "text/") && utf8.Valid(content) {
		att.Content = string(content)
	} else {
		att.Content = base64.StdEncoding.EncodeToString(content)
	}
	return att, nil
}

func mediaTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".txt", ".text":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".json":
		return "text/json"
	case ".yaml", ".yml":
		return "text/yaml"
	case ".go", ".py", ".js", ".ts", ".rs", ".c", ".h", ".sh":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
