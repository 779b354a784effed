package interfaces

import "context"

// AllowList restricts which email/phone identities may originate or receive
// a fax.
type AllowList interface {
	PhoneByEmail(email string) (string, error)
	EmailByPhone(phone string) (string, error)
	Refresh(ctx context.Context) error
}
