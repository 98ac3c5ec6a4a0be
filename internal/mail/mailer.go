// Package mail envoie les e-mails transactionnels de la boutique.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"atelier_back_end/internal/config"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Attachment struct {
	Name string
	Data []byte
}

type Message struct {
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer : STARTTLS obligatoire, auth LOGIN
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

func NewSMTP(cfg config.MailConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("client SMTP: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm, err := buildMsg(m.from, msg)
	if err != nil {
		return err
	}
	return m.client.DialAndSendWithContext(ctx, gm)
}

func buildMsg(from string, msg Message) (*gomail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("aucun destinataire")
	}

	gm := gomail.NewMsg()
	if err := gm.From(from); err != nil {
		return nil, err
	}
	if err := gm.To(msg.To...); err != nil {
		return nil, err
	}
	if msg.ReplyTo != "" {
		if err := gm.ReplyTo(msg.ReplyTo); err != nil {
			return nil, err
		}
	}
	gm.Subject(msg.Subject)
	gm.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		if err := gm.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, fmt.Errorf("pièce jointe %s: %w", a.Name, err)
		}
	}
	return gm, nil
}

// LogMailer remplace le SMTP quand MAIL_HOST est vide
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("📧 e-mail (SMTP désactivé)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

// SendAsync envoie en arrière-plan, une erreur est seulement journalisée
func SendAsync(m Mailer, msg Message, log *zap.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Info("📤 Envoi de l'e-mail", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		if err := m.Send(ctx, msg); err != nil {
			log.Error("❌ envoi e-mail", zap.Strings("to", msg.To), zap.Error(err))
		}
	}()
}
