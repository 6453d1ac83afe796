package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"

	"github.com/LouziusMedia/LoeschMich/internal/platform/config"
)

const ErrNotConfigured = errors.ConstError("smtp is not configured")

type Settings struct {
	Host          string
	Port          int
	User          string
	Password      string
	UseTLS        bool
	SenderEmail   string
	SenderName    string
	RetryAttempts int
	RetryDelay    time.Duration
}

func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		User:          cfg.SMTPUser,
		Password:      cfg.SMTPPassword,
		UseTLS:        cfg.SMTPUseTLS,
		SenderEmail:   cfg.SenderEmail,
		SenderName:    cfg.SenderName,
		RetryAttempts: cfg.SMTPRetryAttempts,
		RetryDelay:    cfg.SMTPRetryDelay,
	}
}

type Mailer struct {
	settings Settings
	clock    clock.Clock
	deliver  func(ctx context.Context, to string, msg []byte) error
}

func New(settings Settings, clk clock.Clock) *Mailer {
	if clk == nil {
		clk = clock.WallClock
	}
	if settings.RetryAttempts < 1 {
		settings.RetryAttempts = 1
	}
	if settings.RetryDelay <= 0 {
		settings.RetryDelay = time.Second
	}
	m := &Mailer{settings: settings, clock: clk}
	m.deliver = m.deliverSMTP
	return m
}

func (m *Mailer) Configured() bool {
	return m.settings.Host != "" && m.settings.SenderEmail != ""
}

// Send delivers one message, retrying transient failures. Permanent SMTP
// rejections (5xx) are not retried.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return errors.NotValidf("recipient %q", to)
	}
	msg := buildMessage(m.from(), to, subject, body, m.clock.Now())
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return m.deliver(ctx, to, msg)
		},
		IsFatalError: isPermanent,
		NotifyFunc: func(err error, attempt int) {
			slog.Warn("smtp attempt failed", "attempt", attempt, "to", to, "err", err)
		},
		Attempts: m.settings.RetryAttempts,
		Delay:    m.settings.RetryDelay,
		Clock:    m.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if last := retry.LastError(err); last != nil {
			err = last
		}
		return errors.Annotatef(err, "sending to %s", to)
	}
	return nil
}

// TestConnection dials, negotiates TLS and authenticates without sending.
func (m *Mailer) TestConnection(ctx context.Context) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	client, closeConn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()
	return errors.Trace(client.Quit())
}

func (m *Mailer) from() string {
	addr := mail.Address{Name: m.settings.SenderName, Address: m.settings.SenderEmail}
	return addr.String()
}

func (m *Mailer) dial(ctx context.Context) (*smtp.Client, func(), error) {
	addr := fmt.Sprintf("%s:%d", m.settings.Host, m.settings.Port)
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	client, err := smtp.NewClient(conn, m.settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Trace(err)
	}
	closeConn := func() {
		_ = client.Close()
	}
	if m.settings.UseTLS {
		tlsConfig := &tls.Config{ServerName: m.settings.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			closeConn()
			return nil, nil, errors.Annotate(err, "starttls")
		}
	}
	if m.settings.User != "" {
		auth := smtp.PlainAuth("", m.settings.User, m.settings.Password, m.settings.Host)
		if err := client.Auth(auth); err != nil {
			closeConn()
			return nil, nil, errors.Annotate(err, "smtp auth")
		}
	}
	return client, closeConn, nil
}

func (m *Mailer) deliverSMTP(ctx context.Context, to string, msg []byte) error {
	client, closeConn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	if err := client.Mail(m.settings.SenderEmail); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func isPermanent(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 500
	}
	return false
}

func buildMessage(from, to, subject, body string, date time.Time) []byte {
	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", subject)),
		fmt.Sprintf("Date: %s", date.Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Transfer-Encoding: 8bit",
		"",
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + body)
}
