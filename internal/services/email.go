package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"virtualexpo/internal/domain"
)

// lifecycleTemplates maps event audit actions to the email template sent for them.
var lifecycleTemplates = map[string]string{
	domain.ActionEventAutoStart:  "event_live",
	domain.ActionEventForceStart: "event_live",
	domain.ActionEventAutoClose:  "event_closed",
	domain.ActionEventForceClose: "event_closed",
}

type lifecycleNotifier struct {
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	recipients []string
	logger     *slog.Logger
}

// NewLifecycleNotifier returns an AuditSink that emails recipients when an event
// goes live or closes. Other audit entries are ignored.
func NewLifecycleNotifier(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, recipients []string, logger *slog.Logger) domain.AuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &lifecycleNotifier{
		mailer:     mailer,
		renderer:   renderer,
		recipients: recipients,
		logger:     logger.With("component", "lifecycle_notifier"),
	}
}

func (n *lifecycleNotifier) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	if entry.Entity != domain.AuditEntityEvent || len(n.recipients) == 0 {
		return nil
	}
	templateName, ok := lifecycleTemplates[entry.Action]
	if !ok {
		return nil
	}

	occurredAt := entry.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	data := domain.EventLifecycleEmailData{
		EventID:    entry.EntityID,
		EventTitle: metadataString(entry.Metadata, "title"),
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		PrevState:  metadataString(entry.Metadata, "prev_state"),
		NewState:   metadataString(entry.Metadata, "new_state"),
		OccurredAt: occurredAt,
	}
	if data.EventTitle == "" {
		data.EventTitle = entry.EntityID
	}

	subject, htmlBody, textBody, err := n.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	var errs []error
	for _, to := range n.recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := n.mailer.Send(to, subject, htmlBody, textBody); err != nil {
			errs = append(errs, fmt.Errorf("failed to send %s email to %s: %w", templateName, to, err))
			continue
		}
		n.logger.Info("lifecycle email sent", "to", to, "event_id", entry.EntityID, "action", entry.Action)
	}
	return errors.Join(errs...)
}

func metadataString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
