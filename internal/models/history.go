package models

import "time"

// HistoryType selects one of the three history logs.
type HistoryType string

const (
	HistoryAction HistoryType = "action"
	HistoryObject HistoryType = "object"
	HistoryError  HistoryType = "error"
)

// Valid reports whether t is a known history type.
func (t HistoryType) Valid() bool {
	return t == HistoryAction || t == HistoryObject || t == HistoryError
}

// DateRange filters history entries. Zero values leave a side open.
type DateRange struct {
	From time.Time `json:"from_date,omitempty"`
	To   time.Time `json:"to_date,omitempty"`
}

// HistoryEntry covers the action, error and object logs. Object entries
// fill ObjectName and Action; the other two fill UserAction and Code.
type HistoryEntry struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	UserAction  string `json:"user_action,omitempty"`
	ObjectName  string `json:"object_name,omitempty"`
	Action      string `json:"action,omitempty"`
	Username    string `json:"username"`
	Project     string `json:"project"`
	Description string `json:"description"`
	Code        string `json:"code,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
	ProjectType string `json:"project_type,omitempty"`

	Info string `json:"-"`
}
