package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrNotProgressLine = errors.New("progress: line is not a JSON object")

type EventKind string

const (
	EventPercent EventKind = "percent"
	EventStep    EventKind = "step"
	EventLog     EventKind = "log"
	EventStatus  EventKind = "status"
	EventResult  EventKind = "result"
)

// ProgressEvent is one of PercentUpdate, StepUpdate, LogAppend, StatusChange
// or ResultReport.
type ProgressEvent interface {
	Kind() EventKind
	progressEvent()
}

type PercentUpdate struct{ Percent int }

type StepUpdate struct{ Step int }

type LogAppend struct{ Entry LogEntry }

type StatusChange struct{ Status ExportStatus }

type ResultReport struct{ Result json.RawMessage }

func (PercentUpdate) Kind() EventKind { return EventPercent }
func (StepUpdate) Kind() EventKind    { return EventStep }
func (LogAppend) Kind() EventKind     { return EventLog }
func (StatusChange) Kind() EventKind  { return EventStatus }
func (ResultReport) Kind() EventKind  { return EventResult }

func (PercentUpdate) progressEvent() {}
func (StepUpdate) progressEvent()    {}
func (LogAppend) progressEvent()     {}
func (StatusChange) progressEvent()  {}
func (ResultReport) progressEvent()  {}

type wireLine struct {
	Percent json.RawMessage `json:"percent"`
	Step    json.RawMessage `json:"step"`
	Log     json.RawMessage `json:"log"`
	Status  json.RawMessage `json:"status"`
	Result  json.RawMessage `json:"result"`
}

type wireLog struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// DecodeLine turns one stdout line of the export script into events, in
// the order percent, step, log, status, result. Blank lines yield nothing.
// Anything that is not a JSON object returns ErrNotProgressLine. A field of
// the wrong type is dropped without discarding the rest of the line.
func DecodeLine(line string) ([]ProgressEvent, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotProgressLine
	}

	var w wireLine
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotProgressLine, err)
	}

	var events []ProgressEvent
	if percent, ok := decodeNumber(w.Percent, 0, 100); ok {
		events = append(events, PercentUpdate{Percent: percent})
	}
	if step, ok := decodeNumber(w.Step, -1, math.MaxInt32); ok {
		events = append(events, StepUpdate{Step: step})
	}
	if entry, ok := decodeLog(w.Log); ok {
		events = append(events, LogAppend{Entry: entry})
	}
	if status, ok := decodeString(w.Status); ok {
		events = append(events, StatusChange{Status: ExportStatus(status)})
	}
	if isPresent(w.Result) {
		events = append(events, ResultReport{Result: w.Result})
	}
	return events, nil
}

// decodeNumber bounds the value before converting it, float to int
// conversion of out-of-range values is undefined.
func decodeNumber(raw json.RawMessage, lo, hi float64) (int, bool) {
	if !isPresent(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int(math.Round(math.Max(lo, math.Min(hi, f)))), true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if !isPresent(raw) {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v == "" {
		return "", false
	}
	return v, true
}

func decodeLog(raw json.RawMessage) (LogEntry, bool) {
	if !isPresent(raw) {
		return LogEntry{}, false
	}

	switch raw[0] {
	case '"':
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
			return LogEntry{}, false
		}
		return LogEntry{Type: LogTypeInfo, Message: msg}, true
	case '{':
		var w wireLog
		if err := json.Unmarshal(raw, &w); err != nil {
			return LogEntry{Type: LogTypeInfo, Message: string(raw)}, true
		}
		return LogEntry{Type: LogType(w.Type), Message: w.Message, Time: w.Time}, true
	case 'f':
		// false carries no message
		return LogEntry{}, false
	default:
		return LogEntry{Type: LogTypeInfo, Message: string(raw)}, true
	}
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
