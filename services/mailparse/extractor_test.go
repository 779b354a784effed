package mailparse

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
)

func buildMessage(from, subject, date string, attachments ...[2]string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: fax@bridge.example.com\r\n")
	if subject != "" {
		b.WriteString("Subject: " + subject + "\r\n")
	}
	if date != "" {
		b.WriteString("Date: " + date + "\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"frontier\"\r\n")
	b.WriteString("\r\n")

	b.WriteString("--frontier\r\n")
	b.WriteString("Content-Type: text/plain\r\n\r\n")
	b.WriteString("Please fax the attached document.\r\n")

	for _, att := range attachments {
		contentType, filename := att[0], att[1]
		b.WriteString("--frontier\r\n")
		b.WriteString(fmt.Sprintf("Content-Type: %s\r\n", contentType))
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n\r\n", filename))
		b.WriteString(base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake body")))
		b.WriteString("\r\n")
	}

	b.WriteString("--frontier--\r\n")
	return []byte(b.String())
}

func TestParse(t *testing.T) {
	raw := buildMessage(
		"Alice Smith <Alice@Example.com>",
		"+15551239999",
		"Fri, 15 Mar 2024 10:30:00 +0000",
		[2]string{"application/pdf", "contract.pdf"},
	)

	msg, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.FromEmail)
	assert.Equal(t, "fax@bridge.example.com", msg.ToAddress)
	assert.Equal(t, "+15551239999", msg.Subject)
	assert.Equal(t, time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC), msg.Date.UTC())
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "application/pdf", msg.Parts[0].ContentType)
	assert.Equal(t, "contract.pdf", msg.Parts[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4 fake body"), msg.Parts[0].Payload)
}

func TestParse_MissingOptionalHeaders(t *testing.T) {
	raw := buildMessage("alice@example.com", "", "")

	msg, err := Parse(raw)
	require.NoError(t, err)

	assert.Empty(t, msg.Subject)
	assert.True(t, msg.Date.IsZero())
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse([]byte("\x00\x01this is not an email"))
	if err != nil {
		assert.True(t, errors.Is(err, er.ErrMalformedMessage))
	}
}

func TestFindAttachment_FirstMatchWins(t *testing.T) {
	raw := buildMessage(
		"alice@example.com",
		"+15551239999",
		"Fri, 15 Mar 2024 10:30:00 +0000",
		[2]string{"image/png", "logo.png"},
		[2]string{"application/pdf", "first.pdf"},
		[2]string{"application/pdf", "second.pdf"},
	)
	msg, err := Parse(raw)
	require.NoError(t, err)

	part, err := FindAttachment(msg, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "first.pdf", part.Filename)
}

func TestFindAttachment_ContentTypeIsCaseInsensitive(t *testing.T) {
	raw := buildMessage(
		"alice@example.com",
		"+15551239999",
		"",
		[2]string{"Application/PDF", "contract.pdf"},
	)
	msg, err := Parse(raw)
	require.NoError(t, err)

	part, err := FindAttachment(msg, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", part.Filename)
}

func TestFindAttachment_NoPDF(t *testing.T) {
	ppt := buildMessage(
		"alice@example.com",
		"+15551239999",
		"",
		[2]string{"image/png", "scan.png"},
	)
	msg, err := Parse(ppt)
	require.NoError(t, err)

	_, err = FindAttachment(msg, "application/pdf")
	assert.ErrorIs(t, err, er.ErrNoAttachment)

	empty, err := Parse(buildMessage("alice@example.com", "", ""))
	require.NoError(t, err)

	_, err = FindAttachment(empty, "application/pdf")
	assert.ErrorIs(t, err, er.ErrNoAttachment)
}
