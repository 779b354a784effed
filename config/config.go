package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL,required"`
}

type AWSConfig struct {
	Region          string `env:"AWS_REGION,required"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type BucketConfig struct {
	EmailBucket      string `env:"BUCKET_NAME_EMAIL,required"`
	SendFaxBucket    string `env:"BUCKET_NAME_SEND_FAX,required"`
	ReceiveFaxBucket string `env:"BUCKET_NAME_RECEIVE_FAX,required"`
}

// ParameterConfig names the parameter-store keys holding runtime secrets.
// Values are fetched through the ParameterStore collaborator, never inlined
// in the environment.
type ParameterConfig struct {
	AllowListParam      string `env:"PARAM_APPROVED_FAX_SENDERS" envDefault:"/prod/approved_fax_senders"`
	AdminEmailParam     string `env:"PARAM_ADMIN_EMAIL" envDefault:"/prod/admin_email"`
	SourceEmailParam    string `env:"PARAM_VALIDATED_SES_EMAIL" envDefault:"/prod/validated_ses_email"`
	FaxDeliveryParam    string `env:"PARAM_FAX_TO_EMAIL" envDefault:"/prod/fax_to_email"`
	WebhookKeyParamBase string `env:"PARAM_WEBHOOK_KEY_BASE" envDefault:"/prod/webhook_keys"`
}

type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID,required"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN,required"`
	FaxAPIURL  string `env:"TWILIO_FAX_API_URL" envDefault:"https://fax.twilio.com/v1"`
}

type DispatchConfig struct {
	PollInterval   int `env:"DISPATCH_POLL_INTERVAL_SECONDS" envDefault:"5"`
	DeadlineSecs   int `env:"DISPATCH_DEADLINE_SECONDS" envDefault:"300"`
	MediaURLTTL    int `env:"DISPATCH_MEDIA_URL_TTL_SECONDS" envDefault:"3600"`
	DeliveryURLTTL int `env:"FAX_DELIVERY_URL_TTL_SECONDS" envDefault:"604800"`
}
