package mailparse

import (
	"bytes"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
	"github.com/bosatsu/aws-twilio-fax/internal/utils"
)

// AttachmentPart is one decoded body part of an inbound message.
type AttachmentPart struct {
	ContentType string
	Filename    string
	Payload     []byte
}

// InboundMessage is the parsed form of a raw inbound email. Optional headers
// (Subject, Date) come back as zero values when absent.
type InboundMessage struct {
	FromEmail string
	ToAddress string
	Subject   string
	Date      time.Time
	Parts     []AttachmentPart
}

// Parse decodes a raw MIME message. Any decoding failure (truncated
// multipart boundary, malformed base64) is reported as ErrMalformedMessage
// rather than propagating enmime internals.
func Parse(raw []byte) (*InboundMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(er.ErrMalformedMessage, err.Error())
	}

	// Addresses are normalized to lowercase so allow-list lookups and
	// derived storage keys do not depend on header casing.
	msg := &InboundMessage{
		FromEmail: utils.NormalizeEmail(utils.ExtractAddress(envelope.GetHeader("From"))),
		ToAddress: utils.NormalizeEmail(utils.ExtractAddress(envelope.GetHeader("To"))),
		Subject:   strings.TrimSpace(envelope.GetHeader("Subject")),
	}

	if dateHeader := envelope.GetHeader("Date"); dateHeader != "" {
		if date, err := mail.ParseDate(dateHeader); err == nil {
			msg.Date = date
		}
	}

	// Attachments first, then inlines, preserving document order within each
	// group. enmime has already decoded transfer encodings.
	for _, part := range envelope.Attachments {
		msg.Parts = append(msg.Parts, AttachmentPart{
			ContentType: part.ContentType,
			Filename:    part.FileName,
			Payload:     part.Content,
		})
	}
	for _, part := range envelope.Inlines {
		msg.Parts = append(msg.Parts, AttachmentPart{
			ContentType: part.ContentType,
			Filename:    part.FileName,
			Payload:     part.Content,
		})
	}

	return msg, nil
}

// FindAttachment returns the first part matching contentType across all
// parts. A message with no parts and a message whose parts all have other
// types produce the same ErrNoAttachment.
func FindAttachment(msg *InboundMessage, contentType string) (*AttachmentPart, error) {
	for i := range msg.Parts {
		if strings.EqualFold(msg.Parts[i].ContentType, contentType) {
			return &msg.Parts[i], nil
		}
	}
	return nil, er.ErrNoAttachment
}
