// Package notify sends volunteer notification emails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured means no mail provider credentials were supplied
var ErrNotConfigured = errors.New("notify: email is not configured")

// Message is a rendered email
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the mail provider SMTP settings
type SMTPConfig struct {
	Host   string
	Port   int
	Domain string
	APIKey string
	From   string
	To     []string
}

// SMTPMailer sends through the provider's SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer returns a mailer, or ErrNotConfigured when credentials are missing
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Domain == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.From == "" {
		cfg.From = "Donation Box Alerts <noreply@" + cfg.Domain + ">"
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, "postmaster@"+cfg.Domain, cfg.APIKey)
	return &SMTPMailer{cfg: cfg, dialer: dialer}, nil
}

// Recipients are the default notification addresses
func (m *SMTPMailer) Recipients() []string { return m.cfg.To }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to := msg.To
	if len(to) == 0 {
		to = m.cfg.To
	}
	if len(to) == 0 {
		return errors.New("notify: no recipients")
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.cfg.From)
	gm.SetHeader("To", to...)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disabled rejects every message; it stands in when email is not configured
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error { return ErrNotConfigured }

var reportTmpl = template.Must(template.New("report").Parse(`<h2>{{.Heading}}</h2>
<p><strong>Box:</strong> {{.Report.BoxID}}{{if .Report.Label}} ({{.Report.Label}}){{end}}</p>
{{if .Report.Address}}<p><strong>Address:</strong> {{.Report.Address}}{{if .Report.City}}, {{.Report.City}}{{end}}{{if .Report.State}}, {{.Report.State}}{{end}}</p>{{end}}
{{if .Report.Volunteer}}<p><strong>Volunteer:</strong> {{.Report.Volunteer}}</p>{{end}}
{{if .Report.Description}}<p><strong>Description:</strong> {{.Report.Description}}</p>{{end}}
{{if .Report.Notes}}<p><strong>Notes:</strong> {{.Report.Notes}}</p>{{end}}
{{if .Reporter}}<p><strong>Reported by:</strong> {{.Reporter}}</p>{{end}}
<p><small>Report {{.Report.ID}} at {{.Report.Timestamp.Format "Jan 2, 2006 3:04 PM MST"}}</small></p>
`))

// ReportEmail renders the notification for a newly submitted report
func ReportEmail(r *models.Report) (Message, error) {
	heading := "Box report"
	switch r.ReportType {
	case models.ReportPickupAlert, models.ReportPickupDetails:
		heading = "Pickup requested"
	case models.ReportProblemAlert, models.ReportProblemReport:
		heading = "Problem reported"
	}

	reporter := ""
	if r.ReporterName != nil && *r.ReporterName != "" {
		reporter = *r.ReporterName
	}
	if r.ReporterEmail != nil && *r.ReporterEmail != "" {
		if reporter != "" {
			reporter += " <" + *r.ReporterEmail + ">"
		} else {
			reporter = *r.ReporterEmail
		}
	}

	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, struct {
		Heading  string
		Report   *models.Report
		Reporter string
	}{heading, r, reporter})
	if err != nil {
		return Message{}, fmt.Errorf("notify: render report: %w", err)
	}

	subject := fmt.Sprintf("%s: box %s", heading, r.BoxID)
	if r.Label != "" {
		subject += " (" + r.Label + ")"
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}
