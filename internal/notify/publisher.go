package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/cert-registry/internal/pkg/logger"
)

type sendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher enqueues notification messages on the SQS channel.
type Publisher struct {
	client   sendAPI
	queueURL string
}

// NewPublisher creates a publisher for the given queue.
func NewPublisher(client sendAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Publish enqueues a message and reports the channel error, if any.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// PublishAsync enqueues a message without blocking the caller.
// Notification is fire-and-forget relative to the primary operation:
// enqueue failures are logged here and never fail the originating
// registration or issuance request.
func (p *Publisher) PublishAsync(msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := p.Publish(ctx, msg); err != nil {
			logger.Error("notification enqueue failed", "recipient", msg.Recipient, "error", err)
		}
	}()
}
