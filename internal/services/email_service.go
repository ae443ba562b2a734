package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the outbound mail operations the guard uses
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
	SendSecurityAlert(ctx context.Context, subject, body string) error
}

// AWSSESEmailService sends mail through AWS SES
type AWSSESEmailService struct {
	sesClient    *ses.Client
	fromAddress  string
	alertAddress string
	baseURL      string
	logger       *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, alertAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		alertAddress: alertAddress,
		baseURL:      baseURL,
		logger:       logger,
	}, nil
}

// SendPasswordResetEmail sends a single-use reset link to the account
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	expiresIn := time.Until(expiresAt).Round(time.Minute)

	textBody := fmt.Sprintf(
		"A password reset was requested for your HostAll admin account.\n\n"+
			"Reset your password: %s\n\n"+
			"This link expires in %s and can be used once.\n\n"+
			"If you did not request this, you can ignore this email; your password is unchanged.\n",
		resetLink, expiresIn)

	htmlBody := fmt.Sprintf(
		`<p>A password reset was requested for your HostAll admin account.</p>`+
			`<p><a href="%s">Reset your password</a></p>`+
			`<p>This link expires in %s and can be used once.</p>`+
			`<p>If you did not request this, you can ignore this email; your password is unchanged.</p>`,
		resetLink, expiresIn)

	return s.send(ctx, email, "Reset your HostAll admin password", textBody, htmlBody)
}

// SendSecurityAlert notifies the configured operator address. A missing
// alert address disables alerting silently.
func (s *AWSSESEmailService) SendSecurityAlert(ctx context.Context, subject, body string) error {
	if s.alertAddress == "" {
		return nil
	}
	return s.send(ctx, s.alertAddress, subject, body, "<p>"+body+"</p>")
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		s.logger.Error("failed to send email", slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
