package email

import (
	"context"
	"errors"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
)

func testSettings() Settings {
	return Settings{
		Host:          "smtp.example.test",
		Port:          587,
		SenderEmail:   "ich@example.test",
		SenderName:    "Jörg Beispiel",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

func TestBuildMessageEncodesHeaders(t *testing.T) {
	msg := string(buildMessage("Jörg <ich@example.test>", "dsb@firma.test", "DSGVO Löschantrag gemäß Art. 17 DSGVO", "Zeile 1\nZeile 2", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Fatalf("expected encoded subject, got %q", msg)
	}
	if !strings.Contains(msg, "To: dsb@firma.test\r\n") {
		t.Fatal("missing To header")
	}
	if !strings.HasSuffix(msg, "\r\n\r\nZeile 1\r\nZeile 2") {
		t.Fatalf("expected CRLF body, got %q", msg)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	m := New(Settings{}, nil)
	if err := m.Send(context.Background(), "a@b.test", "s", "b"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	m := New(testSettings(), testclock.NewDilatedWallClock(time.Millisecond))
	calls := 0
	m.deliver = func(ctx context.Context, to string, msg []byte) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}
	if err := m.Send(context.Background(), "dsb@firma.test", "s", "b"); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestSendStopsOnPermanentRejection(t *testing.T) {
	m := New(testSettings(), testclock.NewDilatedWallClock(time.Millisecond))
	calls := 0
	m.deliver = func(ctx context.Context, to string, msg []byte) error {
		calls++
		return &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	}
	err := m.Send(context.Background(), "dsb@firma.test", "s", "b")
	if err == nil || !strings.Contains(err.Error(), "mailbox unavailable") {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestSendRejectsBadRecipient(t *testing.T) {
	m := New(testSettings(), nil)
	m.deliver = func(ctx context.Context, to string, msg []byte) error {
		t.Fatal("should not deliver")
		return nil
	}
	if err := m.Send(context.Background(), "not an address", "s", "b"); err == nil {
		t.Fatal("expected invalid recipient error")
	}
}
