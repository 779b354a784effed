package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/enum"
	er "github.com/bosatsu/aws-twilio-fax/internal/errors"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

const (
	bucket = "send-fax"
	jobKey = "alice@example.com_2024-15-03_10:30:00.pdf"
)

type fakeStorage struct {
	metadata map[string]string
	metaErr  error
}

func (f *fakeStorage) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) GetObjectMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.metadata, nil
}

func (f *fakeStorage) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	return errors.New("not implemented")
}

func (f *fakeStorage) PresignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "https://storage.example.com/" + bucket + "/" + key, nil
}

func (f *fakeStorage) PresignedUploadPost(ctx context.Context, bucket, key string, fields map[string]string, ttl time.Duration) (*interfaces.PresignedPost, error) {
	return nil, errors.New("not implemented")
}

type fakeProvider struct {
	createReq *interfaces.CreateFaxRequest
	createErr error
	statuses  []enum.FaxStatus
	polls     int
	pollErr   error
	pollErrAt int
}

func (f *fakeProvider) CreateFax(ctx context.Context, req interfaces.CreateFaxRequest) (*interfaces.FaxHandle, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createReq = &req
	return &interfaces.FaxHandle{SID: "FX123", Status: enum.FaxStatusQueued}, nil
}

func (f *fakeProvider) GetFax(ctx context.Context, sid string) (*interfaces.FaxInfo, error) {
	if f.pollErr != nil && f.polls == f.pollErrAt {
		return nil, f.pollErr
	}
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &interfaces.FaxInfo{
		SID:      sid,
		From:     "+15551230001",
		To:       "+15551239999",
		NumPages: 3,
		Duration: 92,
		Price:    "0.042",
		Status:   status,
	}, nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func jobMetadata() map[string]string {
	return map[string]string{
		faxjob.MetaFromEmail: "alice@example.com",
		faxjob.MetaFromPhone: "+15551230001",
		faxjob.MetaToPhone:   "+15551239999",
		faxjob.MetaDate:      "2024-15-03",
		faxjob.MetaTime:      "10:30:00",
		faxjob.MetaFilename:  "contract.pdf",
	}
}

func newDispatcher(storage *fakeStorage, provider *fakeProvider) *Dispatcher {
	d := NewDispatcher(storage, provider, getLogger(), &config.DispatchConfig{
		PollInterval: 5,
		DeadlineSecs: 300,
		MediaURLTTL:  3600,
	})

	// fake clock: each sleep advances time by the requested interval
	current := time.Date(2024, time.March, 15, 10, 31, 0, 0, time.UTC)
	d.now = func() time.Time { return current }
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		current = current.Add(dur)
		return nil
	}
	return d
}

func TestDispatch_Delivered(t *testing.T) {
	storage := &fakeStorage{metadata: jobMetadata()}
	provider := &fakeProvider{statuses: []enum.FaxStatus{
		enum.FaxStatusProcessing,
		enum.FaxStatusSending,
		enum.FaxStatusDelivered,
	}}
	d := newDispatcher(storage, provider)

	err := d.Dispatch(context.Background(), bucket, jobKey)

	require.NoError(t, err)
	require.NotNil(t, provider.createReq)
	assert.Equal(t, "+15551230001", provider.createReq.From)
	assert.Equal(t, "+15551239999", provider.createReq.To)
	assert.Equal(t, "standard", provider.createReq.Quality)
	assert.Contains(t, provider.createReq.MediaURL, jobKey)
	assert.Equal(t, 3, provider.polls)
}

func TestDispatch_TerminalFailureStatus(t *testing.T) {
	for _, status := range []enum.FaxStatus{
		enum.FaxStatusNoAnswer,
		enum.FaxStatusBusy,
		enum.FaxStatusFailed,
		enum.FaxStatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			storage := &fakeStorage{metadata: jobMetadata()}
			provider := &fakeProvider{statuses: []enum.FaxStatus{enum.FaxStatusSending, status}}
			d := newDispatcher(storage, provider)

			err := d.Dispatch(context.Background(), bucket, jobKey)

			assert.ErrorIs(t, err, er.ErrDispatchFailed)
		})
	}
}

func TestDispatch_NeverTerminalTimesOut(t *testing.T) {
	storage := &fakeStorage{metadata: jobMetadata()}
	provider := &fakeProvider{statuses: []enum.FaxStatus{enum.FaxStatusSending}}
	d := newDispatcher(storage, provider)

	err := d.Dispatch(context.Background(), bucket, jobKey)

	assert.ErrorIs(t, err, er.ErrDispatchTimeout)
	// 300s deadline at a 5s interval allows 60 polls
	assert.Equal(t, 60, provider.polls)
}

func TestDispatch_MissingMetadata(t *testing.T) {
	storage := &fakeStorage{metadata: map[string]string{
		faxjob.MetaFromEmail: "alice@example.com",
	}}
	provider := &fakeProvider{}
	d := newDispatcher(storage, provider)

	err := d.Dispatch(context.Background(), bucket, jobKey)

	assert.ErrorIs(t, err, er.ErrMissingMetadata)
	assert.Nil(t, provider.createReq)
}

func TestDispatch_PollErrorPropagates(t *testing.T) {
	storage := &fakeStorage{metadata: jobMetadata()}
	provider := &fakeProvider{
		statuses:  []enum.FaxStatus{enum.FaxStatusSending},
		pollErr:   errors.New("provider unavailable"),
		pollErrAt: 0,
	}
	d := newDispatcher(storage, provider)

	err := d.Dispatch(context.Background(), bucket, jobKey)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, er.ErrDispatchTimeout)
}

func TestDispatch_CanceledContextTimesOut(t *testing.T) {
	storage := &fakeStorage{metadata: jobMetadata()}
	provider := &fakeProvider{statuses: []enum.FaxStatus{enum.FaxStatusSending}}
	d := newDispatcher(storage, provider)
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		return context.Canceled
	}

	err := d.Dispatch(context.Background(), bucket, jobKey)

	assert.ErrorIs(t, err, er.ErrDispatchTimeout)
}
