package notify

import (
	"context"
	"fmt"
	"strings"

	"squashfeature/internal/models"
)

// Notifier publishes a message about project activity to some channel.
// recipient is the project's contact address; it may be empty, in which case
// the notifier uses its own default.
type Notifier interface {
	Publish(ctx context.Context, recipient, message string) error
}

// FormatNewItem renders the message announcing a new feedback item.
func FormatNewItem(projectName string, item *models.FeedbackItem) string {
	label := "Feature request"
	if item.Type == models.TypeBug {
		label = "Bug report"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "New %s for %s\n", strings.ToLower(label), projectName)
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Description: %s", item.Description)
	if origin, ok := item.Metadata["origin"].(string); ok && origin != "" {
		fmt.Fprintf(&b, "\nOrigin: %s", origin)
	}
	return b.String()
}
