package external

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"outreach/internal/config"
)

// NewEmailProvider picks the provider for an environment. APP_ENV=local
// always gets the logging stub so a developer run never mails real contacts.
func NewEmailProvider(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (EmailProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Environment == "local" {
		logger.Info("email provider in stub mode", "environment", cfg.Environment)
		return NewStubEmailProvider(logger.With("client", "stub-email")), nil
	}

	switch cfg.Email.Provider {
	case "ses":
		return NewSESClient(awsCfg, SESClientConfig{
			ConfigSetName: cfg.Email.SESConfigSet,
			Logger:        logger.With("client", "ses"),
		}), nil
	case "sendgrid":
		return NewSendGridClient(&http.Client{Timeout: 10 * time.Second}, SendGridClientConfig{
			APIKey: cfg.Email.SendGridAPIKey,
			Logger: logger.With("client", "sendgrid"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}
