package chat

import (
	"fmt"
	"strings"
)

// FlattenPrompt assembles the outbound prompt for one send: the message text
// followed by the attachment descriptors. Image attachments are referenced by
// name only; text and binary attachments are inlined as name plus content.
func FlattenPrompt(text string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	for _, a := range attachments {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if a.IsImage() {
			_, _ = fmt.Fprintf(&b, "[image attached: %s]", a.Name)
		} else {
			_, _ = fmt.Fprintf(&b, "[file attached: %s]\n%s", a.Name, a.Content)
		}
	}
	return b.String()
}
