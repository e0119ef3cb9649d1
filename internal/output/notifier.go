package output

import (
	"github.com/gen2brain/beeep"

	"github.com/tomw/ptt/pkg/logger"
)

const notifyTitle = "Dictation"

// Notifier shows desktop notifications for dictation outcomes. A nil
// Notifier is valid and shows nothing.
type Notifier struct {
	logger *logger.Logger
}

// NewNotifier creates a desktop notifier
func NewNotifier(log *logger.Logger) *Notifier {
	return &Notifier{logger: log.Named("notifier")}
}

// Notify shows a desktop notification with the given message
func (n *Notifier) Notify(message string) {
	if n == nil {
		return
	}
	if err := beeep.Notify(notifyTitle, message, ""); err != nil {
		n.logger.Debug("Failed to show notification", logger.Error(err))
	}
}
