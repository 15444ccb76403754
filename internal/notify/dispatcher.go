package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/ignite/cert-registry/internal/config"
	"github.com/ignite/cert-registry/internal/mailer"
	"github.com/ignite/cert-registry/internal/pkg/logger"
)

type queueAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Dispatcher consumes notification messages from the queue and hands
// them to the delivery capability. A message is deleted from the queue
// if and only if its delivery was confirmed; failed messages stay put
// and reappear after the queue's visibility timeout. Messages are
// handled independently: one failure never blocks acknowledgment of
// delivered siblings.
type Dispatcher struct {
	queue    queueAPI
	queueURL string
	sender   mailer.Sender
	archiver *ReceiptArchiver
	cfg      config.DispatcherConfig
	done     chan struct{}
}

// NewDispatcher creates a dispatcher. archiver may be nil when no
// receipt bucket is configured.
func NewDispatcher(queue queueAPI, queueURL string, sender mailer.Sender, archiver *ReceiptArchiver, cfg config.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		queueURL: queueURL,
		sender:   sender,
		archiver: archiver,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Start begins consuming in the background until Stop or ctx cancel.
func (d *Dispatcher) Start(ctx context.Context) {
	logger.Info("notification dispatcher started", "queue", d.queueURL)
	go d.poll(ctx)
}

// Stop signals the poll loop to exit.
func (d *Dispatcher) Stop() {
	close(d.done)
}

func (d *Dispatcher) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		default:
		}

		if err := d.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", "error", err)
			time.Sleep(d.cfg.ErrorBackoff())
		}
	}
}

// PollOnce receives one batch and handles each message independently.
func (d *Dispatcher) PollOnce(ctx context.Context) error {
	out, err := d.queue.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(d.queueURL),
		MaxNumberOfMessages: d.cfg.MaxMessages,
		WaitTimeSeconds:     d.cfg.WaitTimeSeconds,
	})
	if err != nil {
		return err
	}

	for _, msg := range out.Messages {
		d.handle(ctx, msg)
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, raw sqstypes.Message) {
	var msg Message
	if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &msg); err != nil {
		// Malformed messages can never deliver; redelivering them would
		// loop forever, so they are the one case deleted without a send.
		logger.Warn("dropping malformed notification", "error", err)
		d.delete(ctx, raw.ReceiptHandle)
		return
	}

	if err := d.sender.Send(ctx, msg.Recipient, msg.Subject, msg.Body); err != nil {
		// No acknowledgment: the message stays eligible for redelivery.
		logger.Error("notification delivery failed", "recipient", msg.Recipient, "error", err)
		return
	}

	if d.archiver != nil {
		// Best effort; the receipt archive never affects acknowledgment.
		if err := d.archiver.Archive(ctx, aws.ToString(raw.MessageId), msg); err != nil {
			logger.Warn("receipt archive failed", "message_id", aws.ToString(raw.MessageId), "error", err)
		}
	}

	d.delete(ctx, raw.ReceiptHandle)
}

func (d *Dispatcher) delete(ctx context.Context, handle *string) {
	_, err := d.queue.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(d.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		// The send already succeeded; the queue will redeliver and the
		// recipient sees a duplicate, which the channel contract allows.
		logger.Warn("acknowledgment failed, message will redeliver", "error", err)
	}
}
