// Package transport provides the SMTP delivery transport for queued messages.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/allisson/mailroom/internal/mailer/domain"
	"github.com/allisson/mailroom/internal/mailer/usecase"
)

// Config holds SMTP transport configuration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the envelope sender and From header for all outgoing mail.
	From string
	// HelloName is the EHLO/HELO hostname presented to the server.
	HelloName string
	// StartTLS upgrades the connection when the server supports it.
	StartTLS bool
	// Timeout bounds the whole SMTP conversation for one attempt.
	Timeout time.Duration
}

// SMTPTransport delivers messages over SMTP using a fresh connection per
// attempt. It implements usecase.Transport.
type SMTPTransport struct {
	config Config
}

// NewSMTPTransport creates a new SMTPTransport.
func NewSMTPTransport(config Config) *SMTPTransport {
	if config.HelloName == "" {
		config.HelloName = "localhost"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPTransport{config: config}
}

// Send delivers one message. Every failure is returned as a
// *usecase.TransportError carrying the SMTP status line when the server
// provided one; the dispatcher treats all of them as retryable.
func (t *SMTPTransport) Send(
	ctx context.Context,
	msg *domain.Message,
) (*usecase.SendResult, error) {
	client, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close() //nolint:errcheck

	if err := client.Mail(t.config.From, nil); err != nil {
		return nil, transportError("mail from rejected", err)
	}
	if err := client.Rcpt(msg.To, nil); err != nil {
		return nil, transportError("recipient rejected", err)
	}

	w, err := client.Data()
	if err != nil {
		return nil, transportError("data command rejected", err)
	}
	if _, err := w.Write(t.render(msg)); err != nil {
		return nil, transportError("message write failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, transportError("message rejected", err)
	}

	if err := client.Quit(); err != nil {
		return nil, transportError("quit failed", err)
	}

	return &usecase.SendResult{}, nil
}

// Ping probes connectivity: dial, greet, NOOP, quit. No message is sent.
func (t *SMTPTransport) Ping(ctx context.Context) error {
	client, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	if err := client.Noop(); err != nil {
		return transportError("noop failed", err)
	}
	return client.Quit()
}

// connect dials the server and completes EHLO, STARTTLS and AUTH.
func (t *SMTPTransport) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))

	dialer := &net.Dialer{Timeout: t.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, transportError("connection failed", err)
	}

	if err := conn.SetDeadline(time.Now().Add(t.config.Timeout)); err != nil {
		conn.Close() //nolint:errcheck,gosec
		return nil, transportError("set deadline failed", err)
	}

	client := smtp.NewClient(conn)

	if err := client.Hello(t.config.HelloName); err != nil {
		client.Close() //nolint:errcheck,gosec
		return nil, transportError("greeting rejected", err)
	}

	if t.config.StartTLS {
		tlsConfig := &tls.Config{
			ServerName: t.config.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close() //nolint:errcheck,gosec
			return nil, transportError("starttls failed", err)
		}
	}

	if t.config.Username != "" {
		auth := sasl.NewPlainClient("", t.config.Username, t.config.Password)
		if err := client.Auth(auth); err != nil {
			client.Close() //nolint:errcheck,gosec
			return nil, transportError("authentication failed", err)
		}
	}

	return client, nil
}

// render builds the raw RFC 5322 message with CRLF line endings.
func (t *SMTPTransport) render(msg *domain.Message) []byte {
	contentType := "text/plain; charset=UTF-8"
	if msg.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", msg.ID, t.config.HelloName)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(toCRLF(msg.Body))
	b.WriteString("\r\n")

	return []byte(b.String())
}

// toCRLF normalizes line endings to CRLF as required by SMTP.
func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// transportError wraps a low-level failure into a *usecase.TransportError,
// extracting the SMTP status line when the server reported one.
func transportError(summary string, err error) *usecase.TransportError {
	tErr := &usecase.TransportError{
		Summary: summary,
		Detail:  fmt.Sprintf("%s: %s", summary, err),
	}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		tErr.SMTPResponse = fmt.Sprintf("%d %d.%d.%d %s",
			smtpErr.Code,
			smtpErr.EnhancedCode[0], smtpErr.EnhancedCode[1], smtpErr.EnhancedCode[2],
			smtpErr.Message,
		)
	}

	return tErr
}
