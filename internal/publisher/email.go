package publisher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/ryosukesatoh/stock-digest/internal/report"
)

// ErrAuthFailed marks an SMTP credential rejection. A bad app password will
// not become valid within the run, so the caller must not retry.
var ErrAuthFailed = errors.New("publisher: smtp authentication failed")

// EmailPublisher renders the report and sends it over implicit-TLS SMTP to
// each recipient in turn. The first recipient failure aborts the loop and
// fails the delivery as a whole.
type EmailPublisher struct {
	host       string
	port       int
	sender     string
	password   string
	recipients []string
}

func NewEmailPublisher(host string, port int, sender, password string, recipients []string) *EmailPublisher {
	return &EmailPublisher{
		host:       host,
		port:       port,
		sender:     sender,
		password:   password,
		recipients: recipients,
	}
}

func (p *EmailPublisher) Publish(_ context.Context, r *report.Report, subject string) error {
	// Precondition failures are rejected before any network call.
	if p.sender == "" || p.password == "" {
		return fmt.Errorf("publisher: missing sender identity or app password")
	}
	if len(p.recipients) == 0 {
		return fmt.Errorf("publisher: no recipients configured")
	}

	body, err := Render(r)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: p.host})
	if err != nil {
		return fmt.Errorf("publisher: failed to connect to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("publisher: smtp handshake failed: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", p.sender, p.password, p.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("%w: %v (use an app-specific password)", ErrAuthFailed, err)
	}

	for _, recipient := range p.recipients {
		if err := p.sendTo(client, recipient, subject, body); err != nil {
			return fmt.Errorf("publisher: send to %s failed: %w", recipient, err)
		}
	}

	if err := client.Quit(); err != nil {
		log.Warn().Err(err).Msg("smtp quit failed")
	}
	log.Info().Int("recipients", len(p.recipients)).Msg("report emailed")
	return nil
}

func (p *EmailPublisher) sendTo(client *smtp.Client, recipient, subject, body string) error {
	if err := client.Mail(p.sender); err != nil {
		return err
	}
	if err := client.Rcpt(recipient); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(p.message(recipient, subject, body))); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (p *EmailPublisher) message(recipient, subject, body string) string {
	headers := []string{
		fmt.Sprintf("From: %s", p.sender),
		fmt.Sprintf("To: %s", recipient),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", subject)),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
