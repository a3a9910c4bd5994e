package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"virtualexpo/internal/domain"
)

const scheduleSyncSource = "schedule_sync"

// sessionKeywords marks schedule slots that describe a session. Labels matching
// none of them (breaks, meals, networking) are not imported.
var sessionKeywords = []string{
	"conference", "session", "keynote", "talk", "workshop", "panel",
	"presentation", "seminar", "lecture", "demo", "webinar", "roundtable",
}

func isSessionSlot(label string) bool {
	label = strings.ToLower(label)
	for _, kw := range sessionKeywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// parseClock turns "HH:MM" into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// scheduleDayDate returns the calendar day of a schedule day, at midnight UTC.
func scheduleDayDate(eventStart time.Time, dayNumber int) time.Time {
	d := eventStart.UTC().AddDate(0, 0, dayNumber-1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *sessionLifecycleService) SyncFromSchedule(ctx context.Context, eventID, actorID string) ([]*domain.Session, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasStartDate() {
		return nil, fmt.Errorf("event %s has no start date: %w", eventID, domain.ErrNotFound)
	}

	created := make([]*domain.Session, 0)
	for _, day := range event.ScheduleDays {
		if day.DayNumber < 1 {
			s.logger.Warn("skipping schedule day with invalid number", "event_id", eventID, "day_number", day.DayNumber)
			continue
		}
		date := scheduleDayDate(event.StartDate, day.DayNumber)
		for _, slot := range day.Slots {
			if !isSessionSlot(slot.Label) {
				continue
			}
			start, end, ok := s.slotTimes(eventID, day.DayNumber, date, slot)
			if !ok {
				continue
			}
			session := domain.NewSession(eventID, slot.Label, "",
				fmt.Sprintf("Imported from schedule day %d (%s)", day.DayNumber, slot.Label),
				start, end, s.now().UTC())
			inserted, err := s.createIfAbsent(ctx, session)
			if err != nil {
				return created, fmt.Errorf("import slot %q of day %d: %w", slot.Label, day.DayNumber, err)
			}
			if !inserted {
				continue
			}
			s.audit.record(ctx, sessionCreateEntry(actorID, session, scheduleSyncSource))
			created = append(created, session)
		}
	}

	s.logger.Info("schedule sync finished", "event_id", eventID, "actor_id", actorID, "created", len(created))
	return created, nil
}

func (s *sessionLifecycleService) slotTimes(eventID string, dayNumber int, date time.Time, slot domain.Slot) (time.Time, time.Time, bool) {
	startOffset, err := parseClock(slot.StartTime)
	if err != nil {
		s.logger.Warn("skipping slot with malformed start time", "event_id", eventID, "day_number", dayNumber, "label", slot.Label, "start_time", slot.StartTime)
		return time.Time{}, time.Time{}, false
	}
	endOffset, err := parseClock(slot.EndTime)
	if err != nil {
		s.logger.Warn("skipping slot with malformed end time", "event_id", eventID, "day_number", dayNumber, "label", slot.Label, "end_time", slot.EndTime)
		return time.Time{}, time.Time{}, false
	}
	start, end := date.Add(startOffset), date.Add(endOffset)
	if !start.Before(end) {
		s.logger.Warn("skipping slot that does not end after it starts", "event_id", eventID, "day_number", dayNumber, "label", slot.Label)
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s *sessionLifecycleService) createIfAbsent(ctx context.Context, session *domain.Session) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()
	return s.sessionRepo.CreateIfAbsent(ctx, session)
}
