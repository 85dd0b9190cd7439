package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/notify/config"
)

// HTMLHeaders - заголовки письма с HTML-телом.
var HTMLHeaders = map[string]string{"Content-Type": "text/html; charset=UTF-8"}

var ErrNoRecipient = errors.New("mail recipient is empty")

type Mailer interface {
	Send(ctx context.Context, to string, subject string, html string, headers map[string]string) error
}

type sendFunc func(ctx context.Context, messages ...*mail.Msg) error

type smtpMailer struct {
	cfg  config.Config
	send sendFunc
	now  func() time.Time
}

// NewMailer возвращает SMTP-отправщик. Если SMTP не настроен, письма только пишутся в лог.
func NewMailer(cfg config.Config, zaplog *zap.Logger) (Mailer, error) {
	if cfg.SMTPAddr == "" {
		return &logMailer{zaplog: zaplog}, nil
	}

	host, portStr, err := net.SplitHostPort(cfg.SMTPAddr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", cfg.SMTPAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", portStr, err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &smtpMailer{cfg: cfg, send: client.DialAndSendWithContext, now: time.Now}, nil
}

func (m *smtpMailer) Send(ctx context.Context, to string, subject string, html string, headers map[string]string) error {
	if to == "" {
		return ErrNoRecipient
	}

	msg, err := m.newMessage(to, subject, html, headers)
	if err != nil {
		return err
	}
	if err = m.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *smtpMailer) newMessage(to string, subject string, html string, headers map[string]string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(m.now())
	msg.SetMessageIDWithValue(messageID(m.cfg.From))

	// Content-Type задается телом письма, остальные заголовки как есть
	contentType := mail.TypeTextHTML
	for name, value := range headers {
		if strings.EqualFold(name, "Content-Type") {
			if !strings.Contains(value, "html") {
				contentType = mail.TypeTextPlain
			}
			continue
		}
		msg.SetGenHeader(mail.Header(name), value)
	}
	msg.SetBodyString(contentType, html)
	return msg, nil
}

func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.Trim(from[at+1:], "> ")
	}
	return uuid.NewString() + "@" + domain
}

type logMailer struct {
	zaplog *zap.Logger
}

func (m *logMailer) Send(_ context.Context, to string, subject string, html string, _ map[string]string) error {
	if to == "" {
		return ErrNoRecipient
	}
	m.zaplog.Info("smtp is not configured, mail skipped",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("length", len(html)),
	)
	return nil
}
