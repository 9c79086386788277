package notification

import (
	"context"
	"log/slog"
)

const (
	// KindGiftReceived indicates a coin gift landed in the user's wallet.
	KindGiftReceived = "gift_received"

	// KindChallengeInvite indicates the user was challenged by a peer.
	KindChallengeInvite = "challenge_invite"

	// KindChallengeAccepted indicates a pending challenge was accepted.
	KindChallengeAccepted = "challenge_accepted"

	// KindChallengeDeclined indicates a pending challenge was declined.
	KindChallengeDeclined = "challenge_declined"

	// KindChallengeResolved indicates an admin resolved the challenge.
	KindChallengeResolved = "challenge_resolved"

	// KindChallengeDisputed indicates a participant disputed the outcome.
	KindChallengeDisputed = "challenge_disputed"
)

// Message describes a notification payload. ChallengeID and FromUserID
// identify the source so per-user mute preferences can be applied.
type Message struct {
	Kind        string
	Destination string
	Title       string
	Body        string
	ChallengeID string
	FromUserID  string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. It is used
// when no delivery channel is configured, and in tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"body", message.Body,
	)
	return nil
}
