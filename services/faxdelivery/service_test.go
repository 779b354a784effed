package faxdelivery

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/services/faxjob"
)

const (
	receiveBucket = "receive-fax"
	faxKey        = "Fax_2024-15-03_10:30:00.pdf"
	routeParam    = "/prod/fax_to_email"
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

type fakeParameterStore struct {
	values map[string]string
}

func (f *fakeParameterStore) GetParameter(ctx context.Context, name string, decrypt bool) (string, error) {
	value, ok := f.values[name]
	if !ok {
		return "", errors.Errorf("parameter %s not found", name)
	}
	return value, nil
}

func (f *fakeParameterStore) PutParameter(ctx context.Context, name, value string, secure bool) error {
	return nil
}

func (f *fakeParameterStore) DeleteParameter(ctx context.Context, name string) error {
	return nil
}

type fakeEmailSender struct {
	sent    []interfaces.EmailMessage
	sendErr error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, msg interfaces.EmailMessage) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, msg)
	return "message-id", nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func newService(storage *fakeStorage, params *fakeParameterStore, sender *fakeEmailSender) *Service {
	return NewService(storage, params, sender, getLogger(),
		&config.ParameterConfig{FaxDeliveryParam: routeParam},
		&config.DispatchConfig{DeliveryURLTTL: 604800},
	)
}

func TestDeliver(t *testing.T) {
	storage := &fakeStorage{metadata: map[string]string{
		faxjob.MetaToNumber:   "+15551239999",
		faxjob.MetaFromNumber: "+15551230001",
		faxjob.MetaPages:      "3",
	}}
	params := &fakeParameterStore{values: map[string]string{
		routeParam: `{"source_email": "faxes@bridge.example.com", "destination_email": "office@example.com"}`,
	}}
	sender := &fakeEmailSender{}
	svc := newService(storage, params, sender)

	err := svc.Deliver(context.Background(), receiveBucket, faxKey)

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, "office@example.com", sent.To)
	assert.Equal(t, "faxes@bridge.example.com", sent.From)
	assert.Equal(t, "New fax from: +15551230001", sent.Subject)
	assert.Contains(t, sent.BodyText, faxKey)
	assert.Contains(t, sent.BodyText, "3 page")
}

func TestDeliver_MissingRoute(t *testing.T) {
	storage := &fakeStorage{metadata: map[string]string{
		faxjob.MetaFromNumber: "+15551230001",
		faxjob.MetaPages:      "3",
	}}
	params := &fakeParameterStore{values: map[string]string{}}
	sender := &fakeEmailSender{}
	svc := newService(storage, params, sender)

	err := svc.Deliver(context.Background(), receiveBucket, faxKey)

	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDeliver_IncompleteRoute(t *testing.T) {
	storage := &fakeStorage{metadata: map[string]string{
		faxjob.MetaFromNumber: "+15551230001",
	}}
	params := &fakeParameterStore{values: map[string]string{
		routeParam: `{"source_email": "faxes@bridge.example.com"}`,
	}}
	sender := &fakeEmailSender{}
	svc := newService(storage, params, sender)

	err := svc.Deliver(context.Background(), receiveBucket, faxKey)

	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDeliver_MetadataFailure(t *testing.T) {
	storage := &fakeStorage{metaErr: errors.New("object not found")}
	params := &fakeParameterStore{}
	sender := &fakeEmailSender{}
	svc := newService(storage, params, sender)

	err := svc.Deliver(context.Background(), receiveBucket, faxKey)

	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}
