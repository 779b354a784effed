package interfaces

import "context"

// EmailMessage is one outbound transactional mail. Text and HTML bodies are
// always supplied together.
type EmailMessage struct {
	To       string
	From     string
	Subject  string
	BodyText string
	BodyHTML string
}

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (messageID string, err error)
}
