package dispatch

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/enum"
	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

const faxQuality = "standard"

// Dispatcher takes a stored fax job and drives it through the provider
// until the transmission reaches a terminal status or the deadline passes.
type Dispatcher struct {
	storage  interfaces.ObjectStorage
	provider interfaces.FaxProvider
	log      logger.Logger

	pollInterval time.Duration
	deadline     time.Duration
	mediaURLTTL  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(storage interfaces.ObjectStorage, provider interfaces.FaxProvider, log logger.Logger, cfg *config.DispatchConfig) *Dispatcher {
	return &Dispatcher{
		storage:      storage,
		provider:     provider,
		log:          log,
		pollInterval: time.Duration(cfg.PollInterval) * time.Second,
		deadline:     time.Duration(cfg.DeadlineSecs) * time.Second,
		mediaURLTTL:  time.Duration(cfg.MediaURLTTL) * time.Second,
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Dispatch sends the fax job stored at bucket/key. It returns nil once the
// provider reports the fax delivered, ErrDispatchFailed on a terminal
// failure status, and ErrDispatchTimeout if no terminal status arrives
// before the deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, bucket, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dispatcher.Dispatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagBucketObject(span, bucket, key)

	metadata, err := d.storage.GetObjectMetadata(ctx, bucket, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to read metadata for fax job %s/%s", bucket, key)
	}

	fromPhone := metadata[faxjob.MetaFromPhone]
	toPhone := metadata[faxjob.MetaToPhone]
	if fromPhone == "" || toPhone == "" {
		err = errors.Wrapf(er.ErrMissingMetadata, "fax job %s/%s", bucket, key)
		tracing.TraceErr(span, err)
		return err
	}

	mediaURL, err := d.storage.PresignedGetURL(ctx, bucket, key, d.mediaURLTTL)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to presign media url for fax job %s/%s", bucket, key)
	}

	handle, err := d.provider.CreateFax(ctx, interfaces.CreateFaxRequest{
		From:     fromPhone,
		To:       toPhone,
		MediaURL: mediaURL,
		Quality:  faxQuality,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to create fax for job %s/%s", bucket, key)
	}

	d.log.Infof("Created fax %s for job %s, from %s to %s", handle.SID, key, fromPhone, toPhone)
	span.LogKV("faxSid", handle.SID)

	status, info, err := d.pollUntilTerminal(ctx, handle)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if status != enum.FaxStatusDelivered {
		d.log.Errorf("Fax %s for job %s ended with status %s", handle.SID, key, status)
		return errors.Wrapf(er.ErrDispatchFailed, "fax %s status %s", handle.SID, status)
	}

	d.log.Infof("Fax %s delivered: from=%s to=%s pages=%d duration=%ds price=%s",
		info.SID, info.From, info.To, info.NumPages, info.Duration, info.Price)
	return nil
}

// pollUntilTerminal re-reads the fax until its status is terminal. The
// clock and sleeper are injected so the loop is testable without waiting.
func (d *Dispatcher) pollUntilTerminal(ctx context.Context, handle *interfaces.FaxHandle) (enum.FaxStatus, *interfaces.FaxInfo, error) {
	deadline := d.now().Add(d.deadline)
	status := handle.Status
	info := &interfaces.FaxInfo{SID: handle.SID, Status: handle.Status}

	for !status.IsTerminal() {
		if !d.now().Before(deadline) {
			return status, info, errors.Wrapf(er.ErrDispatchTimeout, "fax %s still %s after %s", handle.SID, status, d.deadline)
		}
		if err := d.sleep(ctx, d.pollInterval); err != nil {
			return status, info, errors.Wrapf(er.ErrDispatchTimeout, "fax %s poll aborted", handle.SID)
		}

		next, err := d.provider.GetFax(ctx, handle.SID)
		if err != nil {
			return status, info, errors.Wrapf(err, "failed to poll fax %s", handle.SID)
		}
		info = next
		status = next.Status
		d.log.Debugf("Fax %s status: %s", handle.SID, status)
	}

	return status, info, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
