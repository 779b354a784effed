package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/interfaces"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/services/allowlist"
	"github.com/bosatsu/aws-twilio-fax/services/dispatch"
	"github.com/bosatsu/aws-twilio-fax/services/events"
	"github.com/bosatsu/aws-twilio-fax/services/faxdelivery"
	"github.com/bosatsu/aws-twilio-fax/services/ingestion"
	"github.com/bosatsu/aws-twilio-fax/services/notify"
	"github.com/bosatsu/aws-twilio-fax/services/ses"
	"github.com/bosatsu/aws-twilio-fax/services/ssm"
	"github.com/bosatsu/aws-twilio-fax/services/storage"
	"github.com/bosatsu/aws-twilio-fax/services/twilio"
	"github.com/bosatsu/aws-twilio-fax/services/uploadlink"
)

type Services struct {
	EventsService      *events.EventsService
	Storage            interfaces.ObjectStorage
	ParameterStore     interfaces.ParameterStore
	EmailSender        interfaces.EmailSender
	FaxProvider        interfaces.FaxProvider
	AllowList          interfaces.AllowList
	Notifier           *notify.Notifier
	IngestionPipeline  *ingestion.Pipeline
	Dispatcher         *dispatch.Dispatcher
	FaxDeliveryService *faxdelivery.Service
	UploadLinkService  *uploadlink.Service
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger) (*Services, error) {
	publisherConfig := &events.PublisherConfig{
		MessageTTL:          events.DefaultMessageTTL,
		MaxRetries:          events.DefaultMaxRetries,
		PublishTimeout:      events.DefaultPublishTimeout,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}
	subscriberConfig := &events.SubscriberConfig{
		MaxRetries:          events.DefaultMaxRetries,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, publisherConfig, subscriberConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init events service")
	}

	objectStorage := storage.NewS3StorageService(cfg.AWSConfig)
	parameterStore := ssm.NewParameterStoreService(cfg.AWSConfig)
	emailSender := ses.NewEmailSenderService(cfg.AWSConfig)
	faxProvider := twilio.NewTwilioFaxService(cfg.TwilioConfig)

	allowList := allowlist.NewAllowListService(parameterStore, cfg.ParameterConfig.AllowListParam)
	if err := allowList.Refresh(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to load approved sender list")
	}

	sourceEmail, err := parameterStore.GetParameter(ctx, cfg.ParameterConfig.SourceEmailParam, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load notification source address")
	}
	adminEmail, err := parameterStore.GetParameter(ctx, cfg.ParameterConfig.AdminEmailParam, true)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load admin address")
	}
	notifier := notify.NewNotifier(emailSender, log, sourceEmail, adminEmail)

	services := Services{
		EventsService:  eventsService,
		Storage:        objectStorage,
		ParameterStore: parameterStore,
		EmailSender:    emailSender,
		FaxProvider:    faxProvider,
		AllowList:      allowList,
		Notifier:       notifier,
		IngestionPipeline: ingestion.NewPipeline(
			objectStorage, allowList, notifier, eventsService.Publisher, log, cfg.BucketConfig.SendFaxBucket),
		Dispatcher:         dispatch.NewDispatcher(objectStorage, faxProvider, log, cfg.DispatchConfig),
		FaxDeliveryService: faxdelivery.NewService(objectStorage, parameterStore, emailSender, log, cfg.ParameterConfig, cfg.DispatchConfig),
		UploadLinkService:  uploadlink.NewService(objectStorage, allowList, emailSender, log, cfg.BucketConfig, sourceEmail),
	}

	return &services, nil
}
