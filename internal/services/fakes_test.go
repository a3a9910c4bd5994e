package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"virtualexpo/internal/domain"
)

// fakeEventRepo is an in-memory EventRepository whose TransitionState honours
// the conditional-update contract.
type fakeEventRepo struct {
	mu            sync.Mutex
	events        map[string]*domain.Event
	gets          int
	onGet         func(n int)
	listStartErr  error
	listCloseErr  error
	transitionErr map[string]error
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{
		events:        make(map[string]*domain.Event),
		transitionErr: make(map[string]error),
	}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	f.gets++
	n, hook := f.gets, f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) ListDueToStart(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listStartErr != nil {
		return nil, f.listStartErr
	}
	var out []*domain.Event
	for _, e := range f.events {
		if e.State == domain.EventStatePaymentDone && e.HasStartDate() && !e.StartDate.After(now) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (f *fakeEventRepo) ListDueToClose(ctx context.Context, now time.Time) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCloseErr != nil {
		return nil, f.listCloseErr
	}
	var out []*domain.Event
	for _, e := range f.events {
		if e.State == domain.EventStateLive && !e.EndDate.IsZero() && e.EndDate.Before(now) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (f *fakeEventRepo) TransitionState(ctx context.Context, id string, from, to domain.EventState) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionErr[id]; err != nil {
		return nil, err
	}
	e, ok := f.events[id]
	if !ok || e.State != from {
		return nil, domain.ErrConflict
	}
	e.State = to
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) state(id string) domain.EventState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].State
}

func (f *fakeEventRepo) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	mu            sync.Mutex
	sessions      map[string]*domain.Session
	nextID        int
	gets          int
	createErr     error
	listStartErr  error
	transitionErr map[string]error
}

func newFakeSessionRepo(sessions ...*domain.Session) *fakeSessionRepo {
	f := &fakeSessionRepo{
		sessions:      make(map[string]*domain.Session),
		nextID:        1,
		transitionErr: make(map[string]error),
	}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessionRepo) insert(s *domain.Session) {
	s.ID = fmt.Sprintf("sess-%d", f.nextID)
	f.nextID++
	cp := *s
	f.sessions[s.ID] = &cp
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.insert(s)
	return nil
}

func (f *fakeSessionRepo) CreateIfAbsent(ctx context.Context, s *domain.Session) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	for _, existing := range f.sessions {
		if existing.EventID == s.EventID && existing.StartTime.Equal(s.StartTime) {
			return false, nil
		}
	}
	f.insert(s)
	return true, nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) byEvent(eventID string) []*domain.Session {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.EventID == eventID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

func (f *fakeSessionRepo) ListByEventID(ctx context.Context, eventID string, page domain.PaginationParams) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.byEvent(eventID)
	if page.Unbounded() {
		return all, nil
	}
	start := page.Offset()
	if start >= len(all) {
		return []*domain.Session{}, nil
	}
	end := start + page.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeSessionRepo) CountByEventID(ctx context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEvent(eventID)), nil
}

func (f *fakeSessionRepo) ListDueToStart(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listStartErr != nil {
		return nil, f.listStartErr
	}
	return f.filter(func(s *domain.Session) bool {
		return s.Status == domain.SessionStatusScheduled && !s.StartTime.After(now)
	}), nil
}

func (f *fakeSessionRepo) ListDueToEnd(ctx context.Context, now time.Time) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(s *domain.Session) bool {
		return s.Status == domain.SessionStatusLive && !s.EndTime.After(now)
	}), nil
}

func (f *fakeSessionRepo) filter(keep func(*domain.Session) bool) []*domain.Session {
	var out []*domain.Session
	for _, s := range f.sessions {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeSessionRepo) TransitionStatus(ctx context.Context, id string, from, to domain.SessionStatus, at time.Time) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionErr[id]; err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok || s.Status != from {
		return nil, domain.ErrConflict
	}
	s.Status = to
	s.UpdatedAt = at
	stamp := at
	switch to {
	case domain.SessionStatusLive:
		s.StartedAt = &stamp
	case domain.SessionStatusEnded:
		s.EndedAt = &stamp
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) get(id string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.sessions[id]
	return &cp
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// fakeAuditSink records appended entries.
type fakeAuditSink struct {
	mu      sync.Mutex
	entries []domain.AuditLogEntry
	ctxErrs []error
	err     error
}

func (f *fakeAuditSink) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditSink) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

func (f *fakeAuditSink) all() []domain.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditLogEntry(nil), f.entries...)
}

// fakeLiveCache is an in-memory LiveSessionCache.
type fakeLiveCache struct {
	mu          sync.Mutex
	statuses    map[string]domain.SessionStatus
	getErr      error
	invalidated []string
}

func newFakeLiveCache() *fakeLiveCache {
	return &fakeLiveCache{statuses: make(map[string]domain.SessionStatus)}
}

func (c *fakeLiveCache) Get(ctx context.Context, id string) (domain.SessionStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	s, ok := c.statuses[id]
	return s, ok, nil
}

func (c *fakeLiveCache) Set(ctx context.Context, id string, status domain.SessionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[id] = status
	return nil
}

func (c *fakeLiveCache) Invalidate(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.statuses, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// captureHandler is a slog.Handler that keeps every record for assertions.
type captureHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func newCaptureLogger() (*slog.Logger, *captureHandler) {
	h := &captureHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
	return slog.New(h), h
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) messages(level slog.Level) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range *h.records {
		if r.Level == level {
			out = append(out, r.Message)
		}
	}
	return out
}

// fakeMailer records sent emails.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, html, text string
}

func (m *fakeMailer) Send(to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html, text: text})
	return nil
}

// fakeRenderer renders "<template>:<title>" as the subject.
type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(name string, data any) (string, string, string, error) {
	if r.err != nil {
		return "", "", "", r.err
	}
	d := data.(domain.EventLifecycleEmailData)
	return name + ":" + d.EventTitle, "<p>" + d.NewState + "</p>", d.PrevState + "->" + d.NewState, nil
}
