package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/resend/resend-go/v2"
)

var ErrNoRecipient = errors.New("no email recipient")

// EmailNotifier delivers messages through Resend, to the project owner when
// one is known and to the fallback address otherwise.
type EmailNotifier struct {
	client   *resend.Client
	from     string
	fallback string
}

// NewEmailNotifier builds the notifier. fallback may be empty, in which case
// items of projects without an owner address are not mailed.
func NewEmailNotifier(apiKey, from, fallback string) *EmailNotifier {
	return &EmailNotifier{
		client:   resend.NewClient(apiKey),
		from:     from,
		fallback: fallback,
	}
}

func (n *EmailNotifier) recipient(owner string) (string, error) {
	if owner = strings.TrimSpace(owner); owner != "" {
		return owner, nil
	}
	if n.fallback != "" {
		return n.fallback, nil
	}
	return "", ErrNoRecipient
}

func (n *EmailNotifier) Publish(ctx context.Context, recipient, message string) error {
	to, err := n.recipient(recipient)
	if err != nil {
		return err
	}

	subject, _, _ := strings.Cut(message, "\n")
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Text:    message,
		Html:    renderHTML(message),
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Printf("[Notify] email sent (ID: %s)", sent.Id)
	return nil
}

func renderHTML(message string) string {
	lines := strings.Split(html.EscapeString(message), "\n")
	return `<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">` +
		"<h2>" + lines[0] + "</h2><p>" + strings.Join(lines[1:], "<br>") + "</p></div>"
}
