package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jihoo509/third-site/cmd/mainconfig"
	"github.com/jihoo509/third-site/internal/archive"
	appconfig "github.com/jihoo509/third-site/internal/config"
	"github.com/jihoo509/third-site/internal/notify"
	"github.com/jihoo509/third-site/pkg/logging"
)

// AWSLoader yields the shared AWS SDK config. It is only invoked when an
// AWS-backed feature is enabled.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// DefaultAWSLoader loads the AWS config once via mainconfig.
func DefaultAWSLoader(cfg *appconfig.Config) AWSLoader {
	var (
		once   sync.Once
		awsCfg aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		once.Do(func() {
			awsCfg, err = mainconfig.LoadAWSConfig(ctx, cfg)
		})
		return awsCfg, err
	}
}

// BuildArchiver wires the S3 export archive when EXPORT_ARCHIVE_BUCKET is set.
func BuildArchiver(ctx context.Context, cfg *appconfig.Config, load AWSLoader, logger *logging.Logger) (*archive.Store, error) {
	bucket := strings.TrimSpace(cfg.ExportArchiveBucket)
	if bucket == "" {
		return nil, nil
	}
	awsCfg, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	logger.Info("export archive enabled", "bucket", bucket)
	return archive.NewStore(client, bucket, logger.Component("archive")), nil
}

// BuildEmailSender picks the notification transport from NOTIFY_PROVIDER.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, load AWSLoader, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.NotifyProvider {
	case "":
		return nil, nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid notifications requested without SENDGRID_API_KEY; disabled")
			return nil, nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger), nil
	case "stub", "log":
		return notify.NewStubEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown NOTIFY_PROVIDER %q", cfg.NotifyProvider)
	}
}

// BuildNotifier returns the new-lead notifier, or nil when notifications
// are off.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, load AWSLoader, logger *logging.Logger) (*notify.LeadNotifier, error) {
	sender, err := BuildEmailSender(ctx, cfg, load, logger.Component("notify"))
	if err != nil || sender == nil {
		return nil, err
	}
	notifier := notify.NewLeadNotifier(sender, cfg.NotifyToEmail, logger.Component("notify"))
	if notifier == nil {
		logger.Warn("notifications enabled without NOTIFY_TO_EMAIL; disabled")
		return nil, nil
	}
	logger.Info("lead notifications enabled", "provider", cfg.NotifyProvider)
	return notifier, nil
}
