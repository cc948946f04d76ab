package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"
)

// Notifier sends customer-facing booking emails. Send failures are the
// caller's to log; they must never roll back booking state.
type Notifier interface {
	Send(to, subject, templateName string, data interface{}) error
}

// Template names known to the mailer
const (
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingCancelled = "booking_cancelled"
)

var templates = map[string]*template.Template{
	TemplateBookingConfirmed: template.Must(template.New(TemplateBookingConfirmed).Parse(`
		<h2>Your booking is confirmed</h2>
		<p>Dear {{.CustomerName}},</p>
		<p>Your {{.ServiceType}} booking for <strong>{{.VehicleName}}</strong> on {{.StartDate}} at {{.StartTime}} is confirmed.</p>
		<p>Pickup: {{.PickupLocation}}</p>
		<p>Total paid: {{.Currency}} {{printf "%.2f" .Total}}</p>
		<p>Booking reference: {{.BookingID}}</p>
	`)),
	TemplateBookingCancelled: template.Must(template.New(TemplateBookingCancelled).Parse(`
		<h2>Your booking was cancelled</h2>
		<p>Dear {{.CustomerName}},</p>
		<p>Your booking {{.BookingID}} has been cancelled. No payment was taken.</p>
	`)),
}

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier implements Notifier over SMTP using gomail
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *logrus.Logger
}

// NewSMTPNotifier creates a new SMTP-backed notifier
func NewSMTPNotifier(cfg SMTPConfig, logger *logrus.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Send renders the named template and delivers the email
func (n *SMTPNotifier) Send(to, subject, templateName string, data interface{}) error {
	tmpl, ok := templates[templateName]
	if !ok {
		return fmt.Errorf("unknown email template: %s", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template %s: %w", templateName, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	dialer := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"to":       to,
		"template": templateName,
	}).Info("Notification email sent")
	return nil
}

// NoopNotifier is used when mail delivery is disabled in configuration
type NoopNotifier struct {
	logger *logrus.Logger
}

// NewNoopNotifier creates a notifier that only logs
func NewNoopNotifier(logger *logrus.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

// Send logs the notification without delivering anything
func (n *NoopNotifier) Send(to, subject, templateName string, data interface{}) error {
	n.logger.WithFields(logrus.Fields{
		"to":       to,
		"template": templateName,
		"subject":  subject,
	}).Info("Mail disabled, skipping notification")
	return nil
}
