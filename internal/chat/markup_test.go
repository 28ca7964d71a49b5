package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	img := EncodeAttachment(AttachmentImage, "photo.png", "https://files.test/chat/x/photo.png")
	body := ParseBody(img)
	assert.Equal(t, BodyImage, body.Kind)
	assert.Equal(t, "photo.png", body.Filename)
	assert.Equal(t, "https://files.test/chat/x/photo.png", body.URL)

	file := EncodeAttachment(AttachmentFile, "notes.pdf", "https://files.test/chat/x/notes.pdf")
	body = ParseBody(file)
	assert.Equal(t, BodyFile, body.Kind)
	assert.Equal(t, "notes.pdf", body.Filename)
	assert.Equal(t, "https://files.test/chat/x/notes.pdf", body.URL)
}

func TestParseBodyFileIsNotImage(t *testing.T) {
	body := ParseBody("[report.pdf](https://files.test/report.pdf)")
	assert.Equal(t, BodyFile, body.Kind)
}

func TestParseBodyPlain(t *testing.T) {
	for _, text := range []string{
		"hello world",
		"",
		"![broken](no-close",
		"[](https://x)", // empty filename does not match
		"see [the docs](https://x) for details",
	} {
		body := ParseBody(text)
		assert.Equal(t, BodyPlain, body.Kind, "text %q", text)
		assert.Equal(t, text, body.Text)
	}
}
