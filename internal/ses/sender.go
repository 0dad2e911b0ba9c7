// Package ses delivers gated messages through Amazon SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// API is the part of the SES client the sender uses.
type API interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config selects the region, credentials and optional configuration set.
// Empty keys fall back to the default AWS credential chain.
type Config struct {
	Region           string
	AccessKey        string
	SecretKey        string
	ConfigurationSet string
}

// Sender sends one message per SES call. It is safe for concurrent use.
type Sender struct {
	client    API
	configSet string
	now       func() time.Time
}

// New builds a sender from AWS configuration.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(sesv2.NewFromConfig(awsCfg), cfg.ConfigurationSet), nil
}

// NewWithClient builds a sender around an existing client.
func NewWithClient(client API, configSet string) *Sender {
	return &Sender{client: client, configSet: configSet, now: time.Now}
}

// Send submits msg. Every SES failure is returned as an error, including
// MessageRejected, which is about the message content rather than the
// recipient. Recipient bounces arrive later through bounce notifications.
func (s *Sender) Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error) {
	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
				Headers: headers(msg.Headers),
			},
		},
		EmailTags: tags(msg),
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		var rejected *types.MessageRejected
		if errors.As(err, &rejected) {
			logger.Warn("ses rejected message content", "recipient", msg.To, "error", rejected.ErrorMessage())
			return nil, fmt.Errorf("ses rejected message: %w", err)
		}
		return nil, fmt.Errorf("ses send: %w", err)
	}

	id := aws.ToString(out.MessageId)
	logger.Debug("ses message accepted", "recipient", msg.To, "message_id", id)
	return &domain.SendResult{Success: true, MessageID: id, SentAt: s.now()}, nil
}

func headers(h map[string]string) []types.MessageHeader {
	if len(h) == 0 {
		return nil
	}
	out := make([]types.MessageHeader, 0, len(h))
	for k, v := range h {
		out = append(out, types.MessageHeader{Name: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func tags(msg *domain.OutboundMessage) []types.MessageTag {
	var out []types.MessageTag
	if msg.CampaignID != "" {
		out = append(out, types.MessageTag{Name: aws.String("campaign_id"), Value: aws.String(msg.CampaignID)})
	}
	if msg.LeadID != "" {
		out = append(out, types.MessageTag{Name: aws.String("lead_id"), Value: aws.String(msg.LeadID)})
	}
	return out
}
