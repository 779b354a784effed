package allowlist

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
)

type fakeParameterStore struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeParameterStore) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.values[name], nil
}

func (f *fakeParameterStore) PutParameter(ctx context.Context, name, value string, secure bool) error {
	return nil
}

func (f *fakeParameterStore) DeleteParameter(ctx context.Context, name string) error {
	return nil
}

const paramName = "/prod/approved_fax_senders"

func TestRefreshAndLookup(t *testing.T) {
	params := &fakeParameterStore{values: map[string]string{
		paramName: `{"alice@example.com": "+15551230001", "Bob@Example.COM": "+15551230002"}`,
	}}
	svc := NewAllowListService(params, paramName)

	require.NoError(t, svc.Refresh(context.Background()))

	phone, err := svc.PhoneByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+15551230001", phone)

	// lookup and stored keys are both normalized
	phone, err = svc.PhoneByEmail("BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+15551230002", phone)

	email, err := svc.EmailByPhone("+15551230001")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestLookupMiss(t *testing.T) {
	params := &fakeParameterStore{values: map[string]string{
		paramName: `{"alice@example.com": "+15551230001"}`,
	}}
	svc := NewAllowListService(params, paramName)
	require.NoError(t, svc.Refresh(context.Background()))

	_, err := svc.PhoneByEmail("mallory@example.com")
	assert.ErrorIs(t, err, er.ErrSenderNotAllowed)

	_, err = svc.EmailByPhone("+15559999999")
	assert.ErrorIs(t, err, er.ErrRecipientNotAllowed)
}

func TestRefreshFailureKeepsPreviousEntries(t *testing.T) {
	params := &fakeParameterStore{values: map[string]string{
		paramName: `{"alice@example.com": "+15551230001"}`,
	}}
	svc := NewAllowListService(params, paramName)
	require.NoError(t, svc.Refresh(context.Background()))

	params.err = errors.New("parameter store unavailable")
	assert.Error(t, svc.Refresh(context.Background()))

	// stale entries still serve lookups
	phone, err := svc.PhoneByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+15551230001", phone)
}

func TestRefreshRejectsMalformedDocument(t *testing.T) {
	params := &fakeParameterStore{values: map[string]string{
		paramName: `["not", "an", "object"]`,
	}}
	svc := NewAllowListService(params, paramName)

	assert.Error(t, svc.Refresh(context.Background()))
}
