package realtime

import (
	"strings"
	"time"
)

// Table names published on the change feed.
const (
	TableStudents      = "student_profiles"
	TableRooms         = "rooms"
	TableAttendance    = "attendance"
	TableComplaints    = "complaints"
	TableTransactions  = "transactions"
	TableNotifications = "notifications"
)

// Operation is the kind of row-level change.
type Operation string

// Row-level operations.
const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Event signals that something changed. It never carries row data; consumers re-fetch.
type Event struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Table      string    `json:"table"`
	Operation  Operation `json:"operation"`
	RowID      string    `json:"row_id,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	HostelName string    `json:"hostel_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Filter selects events for a subscriber. Empty fields match everything.
type Filter struct {
	Tables     []string
	Operations []Operation
	StudentID  string
	HostelName string
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(event Event) bool {
	if len(f.Tables) > 0 && !containsFold(f.Tables, event.Table) {
		return false
	}
	if len(f.Operations) > 0 {
		matched := false
		for _, op := range f.Operations {
			if op == event.Operation {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.StudentID != "" && event.StudentID != "" && event.StudentID != f.StudentID {
		return false
	}
	if f.HostelName != "" && event.HostelName != "" && !strings.EqualFold(event.HostelName, f.HostelName) {
		return false
	}
	return true
}

// ParseTables splits a comma separated table list, dropping unknown names.
func ParseTables(raw string) []string {
	known := map[string]struct{}{
		TableStudents:      {},
		TableRooms:         {},
		TableAttendance:    {},
		TableComplaints:    {},
		TableTransactions:  {},
		TableNotifications: {},
	}

	tables := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if _, ok := known[name]; ok {
			tables = append(tables, name)
		}
	}
	return tables
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
