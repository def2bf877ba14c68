package notify

import (
	"context"
	"testing"
	"time"

	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportEmailPickup(t *testing.T) {
	name := "Dana"
	email := "dana@example.com"
	r := &models.Report{
		ID:            "r1",
		BoxID:         "BOX42",
		ReportType:    models.ReportPickupAlert,
		Label:         "Corner Store",
		Address:       "1 Main St",
		City:          "Atlanta",
		State:         "GA",
		Notes:         "Box is overflowing",
		ReporterName:  &name,
		ReporterEmail: &email,
		Timestamp:     time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC),
	}

	msg, err := ReportEmail(r)
	require.NoError(t, err)
	assert.Equal(t, "Pickup requested: box BOX42 (Corner Store)", msg.Subject)
	assert.Contains(t, msg.HTML, "Box is overflowing")
	assert.Contains(t, msg.HTML, "1 Main St, Atlanta, GA")
	assert.Contains(t, msg.HTML, "Dana &lt;dana@example.com&gt;")
}

func TestReportEmailEscapesInput(t *testing.T) {
	r := &models.Report{
		BoxID:       "B1",
		ReportType:  models.ReportProblemAlert,
		Description: `<script>alert("x")</script>`,
	}
	msg, err := ReportEmail(r)
	require.NoError(t, err)
	assert.Equal(t, "Problem reported: box B1", msg.Subject)
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestNewSMTPMailerRequiresCredentials(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Host: "smtp.mailgun.org", Port: 587})
	assert.ErrorIs(t, err, ErrNotConfigured)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.mailgun.org", Port: 587, Domain: "mg.example.org", APIKey: "k", To: []string{"ops@example.org"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.org"}, m.Recipients())
	assert.Equal(t, "Donation Box Alerts <noreply@mg.example.org>", m.cfg.From)
}

func TestDisabledMailer(t *testing.T) {
	assert.ErrorIs(t, Disabled{}.Send(context.Background(), Message{}), ErrNotConfigured)
}
