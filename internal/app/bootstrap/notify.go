package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	appconfig "github.com/wolfman30/dental-assistant/internal/config"
	"github.com/wolfman30/dental-assistant/internal/notify"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// BuildEmailSender picks the provider named by EMAIL_PROVIDER. A provider
// that is selected but not configured degrades to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender, "sendgrid"
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub sender")
	case "ses":
		if awsCfg != nil && cfg.SESFromEmail != "" {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger), "ses"
		}
		logger.Warn("ses selected but aws config or SES_FROM_EMAIL missing; using stub sender")
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// BuildNotifier returns the staff notifier, or nil when CLINIC_NOTIFY_EMAIL
// is unset.
func BuildNotifier(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) appointments.Notifier {
	if strings.TrimSpace(cfg.ClinicNotifyEmail) == "" {
		logger.Info("staff notifications disabled; CLINIC_NOTIFY_EMAIL not set")
		return nil
	}
	sender, provider := BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("staff notifications enabled", "provider", provider, "to", cfg.ClinicNotifyEmail)
	n := notify.NewAppointmentNotifier(sender, cfg.ClinicNotifyEmail, cfg.ClinicName, logger)
	if n == nil {
		return nil
	}
	return n
}
