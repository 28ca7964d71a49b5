package chat

import (
	"fmt"
	"regexp"
)

// Attachments travel as ordinary message text using two link conventions:
//
//	![filename](url)  image attachment
//	[filename](url)   generic file attachment
//
// The image form is matched first since the file pattern is a superset.

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

type BodyKind string

const (
	BodyPlain BodyKind = "plain"
	BodyImage BodyKind = "image"
	BodyFile  BodyKind = "file"
)

// Body is the decoded form of a persisted message text.
type Body struct {
	Kind     BodyKind
	Text     string // plain text, verbatim
	Filename string // attachments only
	URL      string // attachments only
}

var (
	imageBodyPattern = regexp.MustCompile(`^!\[(.+)\]\((.+)\)$`)
	fileBodyPattern  = regexp.MustCompile(`^\[(.+)\]\((.+)\)$`)
)

// EncodeAttachment renders the wire form of an attachment message body.
func EncodeAttachment(kind AttachmentKind, filename, url string) string {
	if kind == AttachmentImage {
		return fmt.Sprintf("![%s](%s)", filename, url)
	}
	return fmt.Sprintf("[%s](%s)", filename, url)
}

// ParseBody decodes a persisted message text. Any text not matching an
// attachment pattern is plain text, rendered verbatim.
func ParseBody(text string) Body {
	if m := imageBodyPattern.FindStringSubmatch(text); m != nil {
		return Body{Kind: BodyImage, Filename: m[1], URL: m[2]}
	}
	if m := fileBodyPattern.FindStringSubmatch(text); m != nil {
		return Body{Kind: BodyFile, Filename: m[1], URL: m[2]}
	}
	return Body{Kind: BodyPlain, Text: text}
}
