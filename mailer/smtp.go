package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP delivers messages through an SMTP relay.
type SMTP struct {
	client *mail.Client
	from   string
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{client: client, from: cfg.From}, nil
}

func (s *SMTP) SendBoardInvite(ctx context.Context, m BoardInvite) error {
	msg, err := RenderBoardInvite(m)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTP) SendAddedToBoard(ctx context.Context, m AddedToBoard) error {
	msg, err := RenderAddedToBoard(m)
	if err != nil {
		return err
	}
	return s.send(ctx, msg)
}

func (s *SMTP) send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	slog.Default().Info("email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}

// Log only records messages. It is used when no SMTP sender is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) SendBoardInvite(_ context.Context, m BoardInvite) error {
	msg, err := RenderBoardInvite(m)
	if err != nil {
		return err
	}
	l.log(msg)
	return nil
}

func (l *Log) SendAddedToBoard(_ context.Context, m AddedToBoard) error {
	msg, err := RenderAddedToBoard(m)
	if err != nil {
		return err
	}
	l.log(msg)
	return nil
}

func (l *Log) log(msg Message) {
	l.logger.Info("email not sent, no smtp sender configured",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
}
