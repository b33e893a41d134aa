package audit

import (
	"github.com/sirupsen/logrus"
)

// Notifier records audit messages about a model. Notifications are fire-and-forget: a notifier
// must never block its caller on delivery or report delivery failures back to it.
type Notifier interface {
	Info(modelId, message string)
	Warning(modelId, message string)
}

// LogNotifier writes audit messages to the log.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) Info(modelId, message string) {
	n.Log.WithField("modelId", modelId).WithField("audit", true).Info(message)
}

func (n *LogNotifier) Warning(modelId, message string) {
	n.Log.WithField("modelId", modelId).WithField("audit", true).Warn(message)
}

// Multi fans every notification out to all of its notifiers.
type Multi []Notifier

func (m Multi) Info(modelId, message string) {
	for _, n := range m {
		n.Info(modelId, message)
	}
}

func (m Multi) Warning(modelId, message string) {
	for _, n := range m {
		n.Warning(modelId, message)
	}
}
