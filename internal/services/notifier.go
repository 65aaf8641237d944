package services

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier delivers outbound messages (email in production). Failures never
// roll back the state change that triggered them.
type Notifier interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
	SendDevis(ctx context.Context, to, numero, link string) error
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Log: logrus.StandardLogger()}
}

func (n *LogNotifier) SendVerification(_ context.Context, to, name, link string) error {
	n.Log.WithFields(logrus.Fields{"to": to, "name": name, "link": link}).Info("verification email")
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, to, name, link string) error {
	n.Log.WithFields(logrus.Fields{"to": to, "name": name, "link": link}).Info("password reset email")
	return nil
}

func (n *LogNotifier) SendDevis(_ context.Context, to, numero, link string) error {
	n.Log.WithFields(logrus.Fields{"to": to, "numero": numero, "link": link}).Info("devis email")
	return nil
}

// notify runs send and logs its failure.
func notify(kind string, fields logrus.Fields, send func() error) {
	if err := send(); err != nil {
		logrus.WithFields(fields).WithError(err).Warnf("%s notification failed", kind)
	}
}
