package interfaces

import (
	"context"

	"github.com/bosatsu/aws-twilio-fax/internal/enum"
)

type CreateFaxRequest struct {
	From     string
	To       string
	MediaURL string
	Quality  string
}

// FaxHandle identifies a submitted fax for status polling.
type FaxHandle struct {
	SID    string
	Status enum.FaxStatus
}

// FaxInfo is the provider's attempt metadata, fully populated only on
// delivered faxes.
type FaxInfo struct {
	SID      string
	From     string
	To       string
	Quality  string
	NumPages int
	Duration int
	Price    string
	Status   enum.FaxStatus
}

type FaxProvider interface {
	CreateFax(ctx context.Context, req CreateFaxRequest) (*FaxHandle, error)
	GetFax(ctx context.Context, sid string) (*FaxInfo, error)
}
