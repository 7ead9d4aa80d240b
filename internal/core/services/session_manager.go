package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mangaexporter/backend/internal/domain"
)

// SessionManager owns every export session and its progress record. All
// reads hand out copies.
type SessionManager struct {
	sessions map[string]*domain.ExportSession
	order    []string
	keep     int
	now      func() time.Time
	mu       sync.RWMutex
}

func NewSessionManager(keep int) *SessionManager {
	if keep < 1 {
		keep = 1
	}
	return &SessionManager{
		sessions: make(map[string]*domain.ExportSession),
		keep:     keep,
		now:      time.Now,
	}
}

// ==================== Session Lifecycle ====================

// Open creates a running session unless another one is still live.
func (m *SessionManager) Open(site, fingerprint string) (domain.ExportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Live() {
			return domain.ExportSession{}, ErrExportConflict
		}
	}

	id := uuid.New().String()
	session := &domain.ExportSession{
		ID:          id,
		Site:        site,
		Fingerprint: fingerprint,
		StartedAt:   m.now(),
		Record:      domain.NewRunningRecord(id),
	}

	m.sessions[id] = session
	m.order = append(m.order, id)
	return copySession(session), nil
}

// Finish stamps the exit code and derives the terminal status.
func (m *SessionManager) Finish(id string, exitCode int) (domain.ExportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return domain.ExportSession{}, ErrSessionNotFound
	}

	now := m.now()
	code := exitCode
	session.FinishedAt = &now
	session.ExitCode = &code
	session.Record.Finish(exitCode)

	out := copySession(session)
	m.prune()
	return out, nil
}

func (m *SessionManager) prune() {
	for len(m.order) > m.keep {
		victim := -1
		for i, id := range m.order {
			if !m.sessions[id].Live() {
				victim = i
				break
			}
		}
		if victim < 0 {
			return
		}
		delete(m.sessions, m.order[victim])
		m.order = append(m.order[:victim], m.order[victim+1:]...)
	}
}

// ==================== Record Mutation ====================

// Apply folds events into the session record. The returned bool reports
// whether anything changed.
func (m *SessionManager) Apply(id string, events []domain.ProgressEvent) (domain.ProgressRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return domain.ProgressRecord{}, false
	}

	now := m.now()
	changed := false
	for _, ev := range events {
		if session.Record.Apply(ev, now) {
			changed = true
		}
	}
	return session.Record.Clone(), changed
}

func (m *SessionManager) AppendLog(id string, entry domain.LogEntry) (domain.ProgressRecord, bool) {
	return m.Apply(id, []domain.ProgressEvent{domain.LogAppend{Entry: entry}})
}

// ==================== Queries ====================

func (m *SessionManager) Record(id string) (domain.ProgressRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return domain.ProgressRecord{}, ErrSessionNotFound
	}
	return session.Record.Clone(), nil
}

// Latest returns the most recently opened session's record, or an idle
// record when nothing has run yet.
func (m *SessionManager) Latest() domain.ProgressRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return domain.NewIdleRecord()
	}
	return m.sessions[m.order[len(m.order)-1]].Record.Clone()
}

func (m *SessionManager) Get(id string) (domain.ExportSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return domain.ExportSession{}, ErrSessionNotFound
	}
	return copySession(session), nil
}

// Summaries lists sessions newest first.
func (m *SessionManager) Summaries() []domain.SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.SessionSummary, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.sessions[m.order[i]].Summary())
	}
	return out
}

func (m *SessionManager) LiveIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, id := range m.order {
		if m.sessions[id].Live() {
			ids = append(ids, id)
		}
	}
	return ids
}

func copySession(s *domain.ExportSession) domain.ExportSession {
	out := *s
	out.Record = s.Record.Clone()
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	if s.ExitCode != nil {
		c := *s.ExitCode
		out.ExitCode = &c
	}
	return out
}
