package mailer

import "context"

// Sender delivers a single message to a recipient. Delivery is
// at-least-once from the recipient's point of view: the dispatcher may
// retry a send whose acknowledgment was lost, so implementations and
// downstream recipients must tolerate duplicates.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
