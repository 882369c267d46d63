// Package filter narrows an event timeline with --where clauses and collapses
// duplicated log lines.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akita-tools/akita/internal/domain"
)

// WhereClause represents a parsed --where condition over events.
type WhereClause struct {
	Field    string
	Operator string
	Value    string
	regex    *regexp.Regexp // compiled for ~ and !~ operators
}

// ParseWhereClause parses a clause like "kind=kill" or "raw~lowmemorykiller".
// Supported operators: =, !=, ~, !~, ^, $
func ParseWhereClause(clause string) (*WhereClause, error) {
	// Longest operators first to avoid partial matches.
	operators := []string{"!~", "!=", "~", "=", "^", "$"}

	for _, op := range operators {
		idx := strings.Index(clause, op)
		if idx > 0 {
			field := strings.TrimSpace(clause[:idx])
			value := strings.TrimSpace(clause[idx+len(op):])

			if field == "" || value == "" {
				return nil, fmt.Errorf("invalid where clause: %s", clause)
			}

			wc := &WhereClause{
				Field:    field,
				Operator: op,
				Value:    value,
			}

			if op == "~" || op == "!~" {
				re, err := regexp.Compile(value)
				if err != nil {
					return nil, fmt.Errorf("invalid regex in where clause '%s': %w", clause, err)
				}
				wc.regex = re
			}

			return wc, nil
		}
	}

	return nil, fmt.Errorf("no valid operator found in where clause: %s (use =, !=, ~, !~, ^, $)", clause)
}

// Match checks if an event matches this where clause.
func (wc *WhereClause) Match(ev *domain.LogEvent) bool {
	fieldValue := wc.getFieldValue(ev)

	switch wc.Operator {
	case "=":
		return fieldValue == wc.Value
	case "!=":
		return fieldValue != wc.Value
	case "~":
		return wc.regex.MatchString(fieldValue)
	case "!~":
		return !wc.regex.MatchString(fieldValue)
	case "^":
		return strings.HasPrefix(fieldValue, wc.Value)
	case "$":
		return strings.HasSuffix(fieldValue, wc.Value)
	}

	return false
}

// getFieldValue extracts the addressed field from an event.
func (wc *WhereClause) getFieldValue(ev *domain.LogEvent) string {
	switch strings.ToLower(wc.Field) {
	case "kind":
		return string(ev.Kind)
	case "package":
		return ev.ProcessName
	case "process", "full":
		return ev.FullName
	case "pid":
		return eventPID(ev)
	case "reason":
		return eventReason(ev)
	case "raw":
		return ev.Raw
	default:
		return ""
	}
}

func eventPID(ev *domain.LogEvent) string {
	switch {
	case ev.LMK != nil:
		return ev.LMK.PID
	case ev.Kill != nil:
		return ev.Kill.Proc.PID
	case ev.AMKill != nil:
		return ev.AMKill.PID
	case ev.Start != nil && ev.Start.ProcStart != nil:
		return ev.Start.ProcStart.PID
	case ev.ProcStart != nil:
		return ev.ProcStart.PID
	}
	return ""
}

func eventReason(ev *domain.LogEvent) string {
	switch {
	case ev.LMK != nil:
		return ev.LMK.Reason
	case ev.Kill != nil:
		return ev.Kill.Proc.Reason
	case ev.AMKill != nil:
		return ev.AMKill.Reason
	}
	return ""
}

// WhereFilter applies multiple where clauses with AND logic.
type WhereFilter struct {
	clauses []*WhereClause
}

// NewWhereFilter creates a filter from multiple where clause strings. A nil
// filter matches everything.
func NewWhereFilter(whereClauses []string) (*WhereFilter, error) {
	if len(whereClauses) == 0 {
		return nil, nil
	}

	filter := &WhereFilter{}
	for _, clause := range whereClauses {
		wc, err := ParseWhereClause(clause)
		if err != nil {
			return nil, err
		}
		filter.clauses = append(filter.clauses, wc)
	}

	return filter, nil
}

// Match returns true if the event matches ALL where clauses.
func (f *WhereFilter) Match(ev *domain.LogEvent) bool {
	if f == nil {
		return true
	}
	for _, clause := range f.clauses {
		if !clause.Match(ev) {
			return false
		}
	}
	return true
}

// Apply returns the events matching the filter, preserving order.
func (f *WhereFilter) Apply(events []*domain.LogEvent) []*domain.LogEvent {
	if f == nil {
		return events
	}
	out := make([]*domain.LogEvent, 0, len(events))
	for _, ev := range events {
		if f.Match(ev) {
			out = append(out, ev)
		}
	}
	return out
}
