package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/cert-registry/internal/pkg/logger"
)

// SESSender sends plain-text email via AWS SES using the SDK v2. The
// sender address must be a verified SES identity.
type SESSender struct {
	client     *sesv2.Client
	sender     string
	senderName string
}

// NewSESSender creates an SES sender from an already-configured client.
func NewSESSender(client *sesv2.Client, sender, senderName string) *SESSender {
	return &SESSender{
		client:     client,
		sender:     sender,
		senderName: senderName,
	}
}

// Send delivers a single email through AWS SES.
func (s *SESSender) Send(ctx context.Context, recipient, subject, body string) error {
	from := s.sender
	if s.senderName != "" {
		from = fmt.Sprintf("%s <%s>", s.senderName, s.sender)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{recipient}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("sending email via SES: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("email sent", "recipient", logger.RedactEmail(recipient), "ses_message_id", messageID)

	return nil
}
