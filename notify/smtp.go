// Package notify sends follow-up email to candidates over SMTP.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/CAPITALETECH-MA/AI-agent/errs"
)

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks that every field is present. Address syntax is checked
// when the message is built.
func (m Message) Validate() error {
	var missing []string
	if strings.TrimSpace(m.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(m.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(m.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return errs.Newf(errs.KindInvalidInput, "missing required field(s): %s", strings.Join(missing, ", ")).
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}

// Receipt confirms a message was accepted by the SMTP server.
type Receipt struct {
	MessageID string    `json:"message_id" yaml:"message_id"`
	To        string    `json:"to" yaml:"to"`
	Subject   string    `json:"subject" yaml:"subject"`
	SentAt    time.Time `json:"sent_at" yaml:"sent_at"`
}

// SMTPOptions configure the SMTP transport.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of mandatory, opportunistic or none.
	TLS     string
	Timeout time.Duration
}

// mailClient is the part of *mail.Client the sender uses.
type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender implements Sender with go-mail.
type SMTPSender struct {
	client mailClient
	from   string
	domain string
	now    func() time.Time
}

// NewSMTPSender builds a sender. With an empty host the sender still
// validates messages but every delivery fails with transport_failed.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	s := &SMTPSender{from: opts.From, domain: domainOf(opts.From), now: time.Now}
	if opts.Host == "" {
		slog.Warn("smtp host not configured, email delivery disabled")
		return s, nil
	}
	if err := mail.NewMsg().From(opts.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", opts.From, err)
	}

	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithTLSPortPolicy(tlsPolicy(opts.TLS)),
	}
	if opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(opts.Username),
			mail.WithPassword(opts.Password))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(opts.Timeout))
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	s.client = client
	return s, nil
}

// Send validates msg, then delivers it in a single transport call.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.To(strings.TrimSpace(msg.To)); err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, fmt.Sprintf("invalid recipient address %q", msg.To), err)
	}

	if s.client == nil {
		return nil, errs.New(errs.KindTransportFailed, "email transport is not configured").
			WithSuggestion("set SMTP_HOST and SMTP_FROM to enable email delivery")
	}

	if err := m.From(s.from); err != nil {
		return nil, errs.Wrap(errs.KindTransportFailed, "invalid sender address", err)
	}
	id := uuid.NewString() + "@" + s.domain
	m.SetMessageIDWithValue(id)
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		slog.Error("email delivery failed", "to", msg.To, "error", err)
		return nil, errs.Wrap(errs.KindTransportFailed, "failed to send email", err).
			WithSuggestion("check the SMTP host, port and credentials").
			WithDetails(map[string]any{"to": msg.To})
	}

	slog.Info("email sent", "to", msg.To, "message_id", id)
	return &Receipt{
		MessageID: id,
		To:        msg.To,
		Subject:   msg.Subject,
		SentAt:    s.now().UTC(),
	}, nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch strings.ToLower(name) {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return strings.Trim(addr[i+1:], "> ")
	}
	return "localhost"
}
