package domain

import "time"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventLifecycleEmailData holds data for the event_live and event_closed emails.
type EventLifecycleEmailData struct {
	EventID    string
	EventTitle string
	Action     string
	ActorID    string
	PrevState  string
	NewState   string
	OccurredAt time.Time
}
