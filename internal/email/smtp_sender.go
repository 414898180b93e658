package email

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"aquanova-auth/internal/domain"
)

// dialTimeout aplica cuando el contexto de la request no trae deadline.
const dialTimeout = 10 * time.Second

// SMTPSender entrega los codigos OTP por SMTP.
// Con useTLS abre TLS implicito (puerto 465); si no, usa STARTTLS cuando el servidor lo anuncia.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	brand    string
	useTLS   bool
	now      func() time.Time
}

func NewSMTPSender(host string, port int, username, password, from, fromName, brand string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("smtp from is required: %w", err)
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		brand:    brand,
		useTLS:   useTLS,
		now:      time.Now,
	}, nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, toEmail, displayName, code string, purpose domain.Purpose, expiresAt time.Time) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	now := s.now()
	subject, body, err := RenderOTP(s.brand, purpose, displayName, code, minutesUntil(now, expiresAt))
	if err != nil {
		return err
	}
	msg := otpMessage{
		from:    mail.Address{Name: s.fromName, Address: s.from},
		to:      mail.Address{Name: displayName, Address: toEmail},
		subject: subject,
		html:    body,
		purpose: purpose,
		date:    now,
		id:      newMessageID(now, s.from),
	}
	return s.deliver(ctx, toEmail, msg.bytes())
}

func (s *SMTPSender) deliver(ctx context.Context, toEmail string, msg []byte) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(dialTimeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if !s.useTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
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

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	if s.useTLS {
		td := &tls.Dialer{NetDialer: d, Config: s.tlsConfig()}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}
}

// otpMessage es un correo OTP en HTML.
type otpMessage struct {
	from    mail.Address
	to      mail.Address
	subject string
	html    string
	purpose domain.Purpose
	date    time.Time
	id      string
}

// purposeHeader identifica el flujo que origino el correo, para filtros del proveedor.
const purposeHeader = "X-AquaNova-Purpose"

func (m otpMessage) bytes() []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", m.from.String())
	header("To", m.to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", m.subject))
	header("Date", m.date.Format(time.RFC1123Z))
	header("Message-ID", m.id)
	header(purposeHeader, string(m.purpose))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(m.html)
	return b.Bytes()
}

func newMessageID(now time.Time, from string) string {
	domainPart := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domainPart = from[at+1:]
	}
	return "<" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String() + "@" + domainPart + ">"
}
