package notification

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerNotifierWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewLoggerNotifier(logger)
	err := n.Send(context.Background(), Message{
		Kind:        KindGiftReceived,
		Destination: "alice",
		Body:        "You received 50 coins",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, KindGiftReceived) || !strings.Contains(out, "alice") {
		t.Fatalf("log record missing fields: %q", out)
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: KindChallengeInvite}); err != nil {
		t.Fatalf("send on nil notifier: %v", err)
	}
	if err := NewLoggerNotifier(nil).Send(context.Background(), Message{}); err != nil {
		t.Fatalf("send without logger: %v", err)
	}
}
