package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DeliveryReceipt records a confirmed delivery.
type DeliveryReceipt struct {
	MessageID   string    `json:"message_id"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// ReceiptArchiver writes delivery receipts to S3 under a dated prefix.
type ReceiptArchiver struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
}

// NewReceiptArchiver creates an archiver for the given bucket.
func NewReceiptArchiver(client putObjectAPI, bucket string) *ReceiptArchiver {
	return &ReceiptArchiver{client: client, bucket: bucket, now: time.Now}
}

// Archive stores a receipt for a delivered message.
func (a *ReceiptArchiver) Archive(ctx context.Context, messageID string, msg Message) error {
	deliveredAt := a.now().UTC()
	receipt := DeliveryReceipt{
		MessageID:   messageID,
		Recipient:   msg.Recipient,
		Subject:     msg.Subject,
		DeliveredAt: deliveredAt,
	}

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}

	key := fmt.Sprintf("receipts/%s/%s.json", deliveredAt.Format("2006/01/02"), messageID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting receipt to S3: %w", err)
	}
	return nil
}
