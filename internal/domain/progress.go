package domain

import (
	"encoding/json"
	"time"
)

// ==================== ENUMS ====================

type ExportStatus string

const (
	ExportStatusIdle      ExportStatus = "idle"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusError     ExportStatus = "error"
)

// Terminal reports whether the record is frozen.
func (s ExportStatus) Terminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusError
}

type LogType string

const (
	LogTypeInfo    LogType = "info"
	LogTypeSuccess LogType = "success"
	LogTypeWarning LogType = "warning"
	LogTypeError   LogType = "error"
)

// LogClock is the wall-clock format log entries carry.
const LogClock = "15:04:05"

// ==================== PROGRESS RECORD ====================

type LogEntry struct {
	Seq     int64   `json:"seq"`
	Type    LogType `json:"type"`
	Message string  `json:"message"`
	Time    string  `json:"time"`
}

// ProgressRecord is the state of one export as seen by the UI.
type ProgressRecord struct {
	ID      string          `json:"id,omitempty"`
	Percent int             `json:"percent"`
	Step    int             `json:"step"`
	Logs    []LogEntry      `json:"logs"`
	Status  ExportStatus    `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	LastSeq int64           `json:"last_seq"`
}

func NewIdleRecord() ProgressRecord {
	return ProgressRecord{Logs: []LogEntry{}, Status: ExportStatusIdle}
}

func NewRunningRecord(id string) ProgressRecord {
	return ProgressRecord{ID: id, Logs: []LogEntry{}, Status: ExportStatusRunning}
}

// Apply mutates the record with one event. It returns false when the event
// was ignored, either because the record is frozen or the value is unusable.
func (r *ProgressRecord) Apply(ev ProgressEvent, now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}

	switch e := ev.(type) {
	case PercentUpdate:
		r.Percent = clampPercent(e.Percent)
	case StepUpdate:
		if e.Step < 0 {
			return false
		}
		r.Step = e.Step
	case LogAppend:
		r.appendLog(e.Entry, now)
	case StatusChange:
		if e.Status == "" {
			return false
		}
		r.Status = e.Status
	case ResultReport:
		r.Result = append(json.RawMessage(nil), e.Result...)
	default:
		return false
	}
	return true
}

// Finish sets the terminal status derived from the process exit code. A
// nonzero exit turns a script-reported completed into error.
func (r *ProgressRecord) Finish(exitCode int) bool {
	if exitCode != 0 {
		if r.Status == ExportStatusError {
			return false
		}
		r.Status = ExportStatusError
		return true
	}
	if r.Status.Terminal() {
		return false
	}
	r.Status = ExportStatusCompleted
	return true
}

func (r *ProgressRecord) appendLog(entry LogEntry, now time.Time) {
	if entry.Type == "" {
		entry.Type = LogTypeInfo
	}
	if entry.Time == "" {
		entry.Time = now.Format(LogClock)
	}
	r.LastSeq++
	entry.Seq = r.LastSeq
	r.Logs = append(r.Logs, entry)
}

// Clone returns a deep copy safe to hand out of the owning goroutine.
func (r ProgressRecord) Clone() ProgressRecord {
	out := r
	out.Logs = make([]LogEntry, len(r.Logs))
	copy(out.Logs, r.Logs)
	if r.Result != nil {
		out.Result = append(json.RawMessage(nil), r.Result...)
	}
	return out
}

// Since returns a copy holding only log entries newer than seq.
func (r ProgressRecord) Since(seq int64) ProgressRecord {
	out := r.Clone()
	if seq <= 0 {
		return out
	}
	logs := make([]LogEntry, 0, len(out.Logs))
	for _, entry := range out.Logs {
		if entry.Seq > seq {
			logs = append(logs, entry)
		}
	}
	out.Logs = logs
	return out
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
