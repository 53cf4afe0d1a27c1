package notify

import (
	"context"
	"log"
)

// LogNotifier writes messages to the server log. It is the default when no
// email delivery is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(ctx context.Context, recipient, message string) error {
	if recipient != "" {
		log.Printf("[Notify] (for %s) %s", recipient, message)
		return nil
	}
	log.Printf("[Notify] %s", message)
	return nil
}
