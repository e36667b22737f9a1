package services

import (
	"context"
	"fmt"
	"html"
	"log"

	"remindmail/internal/metrics"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ReminderEmail carries what a confirmation or reminder email shows.
// Date and Time are in the recipient's own zone.
type ReminderEmail struct {
	Email    string
	Date     string
	Time     string
	TimeZone string
}

// EmailService delivers reminder emails through SendGrid.
// Without an API key it only logs what it would have sent.
type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) *EmailService {
	var client *sendgrid.Client
	if apiKey != "" {
		client = sendgrid.NewSendClient(apiKey)
	} else {
		log.Println("SENDGRID_API_KEY not set, emails will be logged instead of sent")
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendConfirmationEmail tells the user their reminder has been scheduled
func (s *EmailService) SendConfirmationEmail(ctx context.Context, r ReminderEmail) error {
	subject := "Your reminder is set"
	plainContent := fmt.Sprintf("Your reminder is set for %s at %s (%s). We'll email you at %s when it's time.",
		r.Date, r.Time, r.TimeZone, r.Email)
	htmlContent := fmt.Sprintf("<p>Your reminder is set for <strong>%s at %s</strong> (%s).</p><p>We'll email you at %s when it's time.</p>",
		html.EscapeString(r.Date), html.EscapeString(r.Time), html.EscapeString(r.TimeZone), html.EscapeString(r.Email))

	return s.send(ctx, "confirmation", r.Email, subject, plainContent, htmlContent)
}

// SendReminderEmail delivers the reminder itself
func (s *EmailService) SendReminderEmail(ctx context.Context, r ReminderEmail) error {
	subject := fmt.Sprintf("Reminder for %s at %s", r.Date, r.Time)
	plainContent := fmt.Sprintf("This is the reminder you scheduled for %s at %s (%s).", r.Date, r.Time, r.TimeZone)
	htmlContent := fmt.Sprintf("<p>This is the reminder you scheduled for <strong>%s at %s</strong> (%s).</p>",
		html.EscapeString(r.Date), html.EscapeString(r.Time), html.EscapeString(r.TimeZone))

	return s.send(ctx, "reminder", r.Email, subject, plainContent, htmlContent)
}

func (s *EmailService) send(ctx context.Context, kind, recipient, subject, plainContent, htmlContent string) error {
	if s.client == nil {
		log.Printf("[email:%s] to=%s subject=%q body=%q", kind, recipient, subject, plainContent)
		metrics.EmailsSent.WithLabelValues(kind, "logged").Inc()
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", recipient)
	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "error").Inc()
		return &DeliveryError{Kind: kind, Recipient: recipient, Err: err}
	}
	if response.StatusCode >= 400 {
		metrics.EmailsSent.WithLabelValues(kind, "error").Inc()
		return &DeliveryError{
			Kind:      kind,
			Recipient: recipient,
			Err:       fmt.Errorf("provider responded %d: %s", response.StatusCode, response.Body),
		}
	}

	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	return nil
}
