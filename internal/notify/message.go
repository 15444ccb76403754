package notify

// Message is a notification queued for delivery. It exists only in the
// queue between enqueue and acknowledgment; the receipt handle that
// owns a delivery attempt travels outside the JSON body.
type Message struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
