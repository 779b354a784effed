package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/dto"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/events"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

const (
	pdfContentType  = "application/pdf"
	maxFaxMediaSize = 32 << 20
)

// receiveFaxTwiML instructs the provider to receive the incoming fax and
// post the result back to the receive endpoint.
const receiveFaxTwiML = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Receive action="/fax/receive"/>
</Response>`

type FaxHandler struct {
	storage    interfaces.ObjectStorage
	publisher  interfaces.EventPublisher
	log        logger.Logger
	bucket     string
	httpClient *http.Client

	now func() time.Time
}

func NewFaxHandler(storage interfaces.ObjectStorage, publisher interfaces.EventPublisher, log logger.Logger, receiveFaxBucket string) *FaxHandler {
	return &FaxHandler{
		storage:    storage,
		publisher:  publisher,
		log:        log,
		bucket:     receiveFaxBucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

// CheckFax answers the provider's initial webhook for an incoming call with
// TwiML accepting the fax.
func (h *FaxHandler) CheckFax() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "FaxHandler.CheckFax")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		c.Data(http.StatusOK, "text/xml", []byte(receiveFaxTwiML))
	}
}

// ReceiveFax stores the completed inbound fax and publishes the event that
// triggers email delivery. Once the form is validated the provider always
// gets a 200: the fax transmission already succeeded on their side and a
// retry storm cannot fix a storage outage. Failures are logged and traced.
func (h *FaxHandler) ReceiveFax() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "FaxHandler.ReceiveFax")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var webhook dto.InboundFaxWebhook
		if err := c.ShouldBind(&webhook); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		span.LogKV("from", webhook.From, "to", webhook.To, "pages", webhook.NumPages)

		payload, err := h.fetchMedia(ctx, webhook.MediaURL)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to fetch inbound fax media from %s: %v", webhook.MediaURL, err)
			c.Status(http.StatusOK)
			return
		}

		key := faxjob.BuildReceivedFaxKey(h.now())
		metadata := faxjob.BuildReceivedFaxMetadata(webhook.To, webhook.From, webhook.NumPages)

		err = h.storage.PutObject(ctx, h.bucket, key, payload, pdfContentType, metadata)
		if err != nil {
			tracing.TraceErr(span, err)
			h.log.Errorf("Failed to store inbound fax %s: %v", key, err)
			c.Status(http.StatusOK)
			return
		}

		h.log.Infof("Stored inbound fax %s from %s, %s pages", key, webhook.From, webhook.NumPages)

		err = h.publisher.PublishEvent(ctx, key, dto.FaxReceived{
			Bucket: h.bucket,
			Key:    key,
		}, events.RoutingKeyFaxReceived)
		if err != nil {
			// The fax is stored; delivery can be replayed by republishing.
			tracing.TraceErr(span, err)
			h.log.Errorf("Inbound fax %s stored but event publish failed: %v", key, err)
		}

		c.Status(http.StatusOK)
	}
}

func (h *FaxHandler) fetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build media request")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "media request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("media request returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxFaxMediaSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read media body")
	}
	return payload, nil
}
