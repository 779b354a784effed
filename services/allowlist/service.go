package allowlist

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/interfaces"
	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/internal/utils"
)

// allowListService maps approved sender emails to their fax numbers. The
// mapping lives in a parameter-store entry holding a JSON object of
// {"email": "phone"}. Email keys are normalized to lowercase on load and on
// lookup, so matching is case-insensitive.
type allowListService struct {
	params    interfaces.ParameterStore
	paramName string

	mu      sync.RWMutex
	byEmail map[string]string
	byPhone map[string]string
}

func NewAllowListService(params interfaces.ParameterStore, paramName string) interfaces.AllowList {
	return &allowListService{
		params:    params,
		paramName: paramName,
		byEmail:   map[string]string{},
		byPhone:   map[string]string{},
	}
}

// Refresh re-reads the allow-list parameter and swaps the lookup maps.
// Called once at startup and periodically from the cron manager.
func (s *allowListService) Refresh(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AllowListService.Refresh")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	raw, err := s.params.GetParameter(ctx, s.paramName, true)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to load fax allow-list")
	}

	var entries map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "fax allow-list is not a valid JSON object")
	}

	byEmail := make(map[string]string, len(entries))
	byPhone := make(map[string]string, len(entries))
	for email, phone := range entries {
		normalized := utils.NormalizeEmail(email)
		byEmail[normalized] = phone
		byPhone[phone] = normalized
	}

	s.mu.Lock()
	s.byEmail = byEmail
	s.byPhone = byPhone
	s.mu.Unlock()

	span.LogKV("entries", len(byEmail))
	return nil
}

func (s *allowListService) PhoneByEmail(email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phone, ok := s.byEmail[utils.NormalizeEmail(email)]
	if !ok {
		return "", er.ErrSenderNotAllowed
	}
	return phone, nil
}

func (s *allowListService) EmailByPhone(phone string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.byPhone[phone]
	if !ok {
		return "", er.ErrRecipientNotAllowed
	}
	return email, nil
}
