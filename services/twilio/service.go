package twilio

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/net/context"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/enum"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

// Twilio Programmable Fax REST API:
// https://www.twilio.com/docs/fax/api/faxes
type twilioFaxService struct {
	cfg    *config.TwilioConfig
	client *http.Client
}

func NewTwilioFaxService(cfg *config.TwilioConfig) interfaces.FaxProvider {
	return &twilioFaxService{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// faxResource is Twilio's fax representation. num_pages and duration arrive
// as JSON numbers or null, price as a string.
type faxResource struct {
	SID      string `json:"sid"`
	From     string `json:"from"`
	To       string `json:"to"`
	Quality  string `json:"quality"`
	Status   string `json:"status"`
	NumPages *int   `json:"num_pages"`
	Duration *int   `json:"duration"`
	Price    string `json:"price"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (s *twilioFaxService) CreateFax(ctx context.Context, req interfaces.CreateFaxRequest) (*interfaces.FaxHandle, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TwilioFaxService.CreateFax")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("from", req.From, "to", req.To)

	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" {
		err := errors.New("Twilio API configuration is missing")
		tracing.TraceErr(span, err)
		return nil, err
	}

	params := url.Values{}
	params.Add("From", req.From)
	params.Add("To", req.To)
	params.Add("MediaUrl", req.MediaURL)
	if req.Quality != "" {
		params.Add("Quality", req.Quality)
	}

	var fax faxResource
	err := s.call(ctx, http.MethodPost, "/Faxes", strings.NewReader(params.Encode()), &fax)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to create fax"))
		return nil, err
	}

	span.LogKV("sid", fax.SID, "status", fax.Status)
	return &interfaces.FaxHandle{
		SID:    fax.SID,
		Status: enum.DecodeFaxStatus(fax.Status),
	}, nil
}

func (s *twilioFaxService) GetFax(ctx context.Context, sid string) (*interfaces.FaxInfo, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TwilioFaxService.GetFax")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("sid", sid)

	var fax faxResource
	err := s.call(ctx, http.MethodGet, "/Faxes/"+sid, nil, &fax)
	if err != nil {
		tracing.TraceErr(span, errors.Wrapf(err, "failed to fetch fax %s", sid))
		return nil, err
	}

	info := &interfaces.FaxInfo{
		SID:     fax.SID,
		From:    fax.From,
		To:      fax.To,
		Quality: fax.Quality,
		Price:   fax.Price,
		Status:  enum.DecodeFaxStatus(fax.Status),
	}
	if fax.NumPages != nil {
		info.NumPages = *fax.NumPages
	}
	if fax.Duration != nil {
		info.Duration = *fax.Duration
	}
	return info, nil
}

func (s *twilioFaxService) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.FaxAPIURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build Twilio request")
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call Twilio API")
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read Twilio response")
	}

	if span := opentracing.SpanFromContext(ctx); span != nil {
		span.LogFields(tracingLog.String("responseBody", string(responseBody)))
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(responseBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return errors.Errorf("Twilio API error %d: %s", apiErr.Code, apiErr.Message)
		}
		return errors.Errorf("Twilio API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return errors.Wrap(err, "failed to decode Twilio response")
		}
	}
	return nil
}
