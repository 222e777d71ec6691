package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"

	"cake_back_end/internal/models"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie les e-mails transactionnels des commandes
type Mailer struct {
	cfg MailConfig
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}

// Notify envoie la confirmation de commande au client s'il a laissé un e-mail
func (m *Mailer) Notify(ctx context.Context, order models.Order) error {
	if !m.Enabled() || order.Email == "" {
		return nil
	}
	body, err := OrderConfirmationHTML(order)
	if err != nil {
		return fmt.Errorf("rendu confirmation: %w", err)
	}
	if err := m.Send(ctx, order.Email, confirmationSubject(order), body); err != nil {
		return fmt.Errorf("envoi confirmation: %w", err)
	}
	log.Printf("📧 Confirmation envoyée pour la commande %s", order.ID)
	return nil
}

// NotifyStatus prévient le client d'un changement de statut
func (m *Mailer) NotifyStatus(ctx context.Context, order models.Order) error {
	if !m.Enabled() || order.Email == "" {
		return nil
	}
	body, err := OrderStatusHTML(order)
	if err != nil {
		return fmt.Errorf("rendu statut: %w", err)
	}
	if err := m.Send(ctx, order.Email, StatusSubject(order.Status), body); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}
	log.Printf("📧 Email de statut envoyé: %s → %s", order.Status, order.Email)
	return nil
}
