package faxjob

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/internal/utils"
)

// Object metadata keys. These are a persisted contract: the dispatch stage
// and the stored objects of earlier deployments both rely on them.
const (
	MetaFromEmail = "from_email"
	MetaFromPhone = "from_phone"
	MetaToPhone   = "to_phone"
	MetaDate      = "date"
	MetaTime      = "time"
	MetaFilename  = "filename"
)

// Metadata keys attached to inbound fax PDFs stored from the provider
// webhook.
const (
	MetaToNumber   = "to_number"
	MetaFromNumber = "from_number"
	MetaPages      = "pages"
)

// Persisted date layout is year-day-month, a quirk frozen into the stored
// object naming contract.
const (
	dateLayout = "2006-02-01"
	timeLayout = "15:04:05"
)

// FormatDate and FormatTime normalize the message date to UTC before
// formatting. The original timezone is deliberately discarded so the same
// message always produces the same key.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// BuildStorageKey derives the fax job object key. Pure: equal inputs yield
// equal keys, so re-ingesting the same message overwrites instead of
// duplicating. Known limitation: two messages from one sender within the
// same second collide.
func BuildStorageKey(fromEmail, date, timeOfDay string) string {
	return strings.Join([]string{fromEmail, date, timeOfDay}, "_") + ".pdf"
}

// BuildMetadata packs the job attributes into the flat string map attached
// to the stored PDF. Sender identity fields must be ASCII-safe; the original
// attachment filename is sanitized rather than rejected.
func BuildMetadata(fromEmail, fromPhone, toPhone, date, timeOfDay, filename string) (map[string]string, error) {
	for name, v := range map[string]string{
		MetaFromEmail: fromEmail,
		MetaFromPhone: fromPhone,
		MetaToPhone:   toPhone,
	} {
		if !utils.IsASCII(v) {
			return nil, errors.Errorf("metadata field %s contains non-ASCII characters: %q", name, v)
		}
	}

	return map[string]string{
		MetaFromEmail: fromEmail,
		MetaFromPhone: fromPhone,
		MetaToPhone:   toPhone,
		MetaDate:      date,
		MetaTime:      timeOfDay,
		MetaFilename:  utils.SanitizeASCII(filename),
	}, nil
}

// BuildReceivedFaxKey names inbound fax PDFs stored from the provider
// webhook.
func BuildReceivedFaxKey(now time.Time) string {
	return fmt.Sprintf("Fax_%s_%s.pdf", FormatDate(now), FormatTime(now))
}

func BuildReceivedFaxMetadata(toNumber, fromNumber, pages string) map[string]string {
	return map[string]string{
		MetaToNumber:   toNumber,
		MetaFromNumber: fromNumber,
		MetaPages:      pages,
	}
}
