package faxdelivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

// deliveryRoute is the parameter-store document naming who inbound faxes
// are forwarded to.
type deliveryRoute struct {
	SourceEmail      string `json:"source_email"`
	DestinationEmail string `json:"destination_email"`
}

// Service forwards a stored inbound fax to the configured mailbox as a
// time-limited download link.
type Service struct {
	storage    interfaces.ObjectStorage
	params     interfaces.ParameterStore
	sender     interfaces.EmailSender
	log        logger.Logger
	routeParam string
	linkTTL    time.Duration
}

func NewService(
	storage interfaces.ObjectStorage,
	params interfaces.ParameterStore,
	sender interfaces.EmailSender,
	log logger.Logger,
	paramCfg *config.ParameterConfig,
	dispatchCfg *config.DispatchConfig,
) *Service {
	return &Service{
		storage:    storage,
		params:     params,
		sender:     sender,
		log:        log,
		routeParam: paramCfg.FaxDeliveryParam,
		linkTTL:    time.Duration(dispatchCfg.DeliveryURLTTL) * time.Second,
	}
}

// Deliver emails a presigned download link for the inbound fax stored at
// bucket/key.
func (s *Service) Deliver(ctx context.Context, bucket, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "FaxDeliveryService.Deliver")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	metadata, err := s.storage.GetObjectMetadata(ctx, bucket, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to read metadata for inbound fax %s/%s", bucket, key)
	}
	fromNumber := metadata[faxjob.MetaFromNumber]
	pages := metadata[faxjob.MetaPages]

	url, err := s.storage.PresignedGetURL(ctx, bucket, key, s.linkTTL)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to presign inbound fax %s/%s", bucket, key)
	}

	route, err := s.loadRoute(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	subject := fmt.Sprintf("New fax from: %s", fromNumber)
	bodyText := fmt.Sprintf("You received a %s page fax from %s.\n\nDownload (link valid for 7 days): %s", pages, fromNumber, url)
	bodyHTML := fmt.Sprintf("<p>You received a %s page fax from %s.</p><p><a href=%q>Download fax</a> (link valid for 7 days)</p>", pages, fromNumber, url)

	messageID, err := s.sender.SendEmail(ctx, interfaces.EmailMessage{
		To:       route.DestinationEmail,
		From:     route.SourceEmail,
		Subject:  subject,
		BodyText: bodyText,
		BodyHTML: bodyHTML,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to forward inbound fax %s/%s", bucket, key)
	}

	s.log.Infof("Forwarded inbound fax %s to %s, message id %s", key, route.DestinationEmail, messageID)
	return nil
}

func (s *Service) loadRoute(ctx context.Context) (*deliveryRoute, error) {
	raw, err := s.params.GetParameter(ctx, s.routeParam, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load fax delivery route %s", s.routeParam)
	}
	var route deliveryRoute
	if err := json.Unmarshal([]byte(raw), &route); err != nil {
		return nil, errors.Wrapf(err, "malformed fax delivery route %s", s.routeParam)
	}
	if route.SourceEmail == "" || route.DestinationEmail == "" {
		return nil, errors.Errorf("fax delivery route %s is missing addresses", s.routeParam)
	}
	return &route, nil
}
