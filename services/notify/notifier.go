package notify

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

// Notifier sends the pipeline's templated notifications. Delivery is
// best-effort: a failed notification is logged and never fails the pipeline
// that requested it.
type Notifier struct {
	sender      interfaces.EmailSender
	log         logger.Logger
	sourceEmail string
	adminEmail  string
}

func NewNotifier(sender interfaces.EmailSender, log logger.Logger, sourceEmail, adminEmail string) *Notifier {
	return &Notifier{
		sender:      sender,
		log:         log,
		sourceEmail: sourceEmail,
		adminEmail:  adminEmail,
	}
}

// NotifyUnauthorizedSender tells the admin an email arrived from an address
// that is not on the allow-list, naming the source object so the message can
// be inspected.
func (n *Notifier) NotifyUnauthorizedSender(ctx context.Context, senderEmail, bucket, key string) {
	subject := "Received email from non-approved sender"
	bodyText := fmt.Sprintf(
		"You have received an email from non-approved sender: %s. "+
			"The message is in the %s bucket, named %s.",
		senderEmail, bucket, key,
	)
	bodyHTML := fmt.Sprintf(`<html>
<head></head>
<body>
<p>You have received an email from non-approved sender: %s.</p>
<p>The message is in the %s bucket, named %s.</p>
</body>
</html>`, senderEmail, bucket, key)

	n.send(ctx, n.adminEmail, subject, bodyText, bodyHTML)
}

// NotifyNoAttachment tells the original sender their message carried no PDF
// and no fax was sent.
func (n *Notifier) NotifyNoAttachment(ctx context.Context, recipient string) {
	subject := "Received email with no PDF"
	bodyText := "Received email with no PDF, no fax sent."
	bodyHTML := `<html>
<head></head>
<body>
<p>Received email with no PDF, no fax sent.</p>
</body>
</html>`

	n.send(ctx, recipient, subject, bodyText, bodyHTML)
}

// NotifyStoreFailure tells the admin a fax job PDF could not be written.
func (n *Notifier) NotifyStoreFailure(ctx context.Context, key string, storeErr error) {
	subject := "Failed to store fax job"
	bodyText := fmt.Sprintf("Failed to store fax job %s: %v. The fax was not sent.", key, storeErr)
	bodyHTML := fmt.Sprintf(`<html>
<head></head>
<body>
<p>Failed to store fax job %s: %v.</p>
<p>The fax was not sent.</p>
</body>
</html>`, key, storeErr)

	n.send(ctx, n.adminEmail, subject, bodyText, bodyHTML)
}

func (n *Notifier) send(ctx context.Context, recipient, subject, bodyText, bodyHTML string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Notifier.send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("recipient", recipient, "subject", subject)

	n.log.Infof("Attempting to send email to %s with subject: %s", recipient, subject)

	_, err := n.sender.SendEmail(ctx, interfaces.EmailMessage{
		To:       recipient,
		From:     n.sourceEmail,
		Subject:  subject,
		BodyText: bodyText,
		BodyHTML: bodyHTML,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		n.log.Errorf("Failed to send notification to %s: %v", recipient, err)
		return
	}

	n.log.Info("Email sent successfully")
}
