package enum

// FaxStatus mirrors the provider's fax status values.
type FaxStatus string

const (
	FaxStatusStarted    FaxStatus = "started"
	FaxStatusQueued     FaxStatus = "queued"
	FaxStatusProcessing FaxStatus = "processing"
	FaxStatusSending    FaxStatus = "sending"
	FaxStatusDelivered  FaxStatus = "delivered"
	FaxStatusNoAnswer   FaxStatus = "no-answer"
	FaxStatusBusy       FaxStatus = "busy"
	FaxStatusFailed     FaxStatus = "failed"
	FaxStatusCanceled   FaxStatus = "canceled"
)

func (t FaxStatus) String() string {
	return string(t)
}

// IsTerminal reports whether no further provider-side state change is
// expected for this status.
func (t FaxStatus) IsTerminal() bool {
	switch t {
	case FaxStatusDelivered, FaxStatusNoAnswer, FaxStatusBusy, FaxStatusFailed, FaxStatusCanceled:
		return true
	}
	return false
}

func DecodeFaxStatus(s string) FaxStatus {
	switch FaxStatus(s) {
	case FaxStatusStarted, FaxStatusQueued, FaxStatusProcessing, FaxStatusSending,
		FaxStatusDelivered, FaxStatusNoAnswer, FaxStatusBusy, FaxStatusFailed, FaxStatusCanceled:
		return FaxStatus(s)
	}
	return FaxStatusStarted
}
