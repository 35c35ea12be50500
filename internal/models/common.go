// Package models holds the GeoAI REST API entities and the client-side
// list state attached to them.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pagination mirrors the page block every list response carries.
type Pagination struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// DefaultPagination is the state of a list before the first fetch.
func DefaultPagination(limit int) Pagination {
	return Pagination{Page: 1, Pages: 1, Limit: limit}
}

// Offset returns the index of the first item on the page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// FilterSort is the filter/search/sort axis of a list. F is the filter
// value type: a project type, a role, a date range or nothing.
type FilterSort[F any] struct {
	Filter  F      `json:"filter"`
	Search  string `json:"search,omitempty"`
	Sort    string `json:"sort,omitempty"`
	Reverse bool   `json:"reverse,omitempty"`
}

// NoFilter is the filter type of lists that have none.
type NoFilter struct{}

// Page is one fetched page of a list.
type Page[E any] struct {
	Items      []E
	Pagination Pagination
}

// FilterAll is the filter value that disables type filtering.
const FilterAll = "all"

// TaskStatus is the state of a server-side background task.
type TaskStatus string

const (
	TaskSuccess TaskStatus = "SUCCESS"
	TaskPending TaskStatus = "PENDING"
	TaskFailure TaskStatus = "FAILURE"
)

// Task is a server-side asynchronous operation.
type Task struct {
	ID     string          `json:"task_id"`
	Status TaskStatus      `json:"task_status"`
	Result json.RawMessage `json:"task_result,omitempty"`
}

// Done reports whether the task reached a terminal status.
func (t Task) Done() bool {
	return t.Status == TaskSuccess || t.Status == TaskFailure
}

// Folders lists storage folders available for a new project or model.
type Folders struct {
	Links []string `json:"links"`
}

// StringList decodes either a JSON array of strings or a single string.
// A few server fields use both shapes.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if one == "" {
			*s = nil
		} else {
			*s = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*s = many
	return nil
}

// Severity classifies an alert.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)
