package models

// ComparisonProject is the summary of one side of a comparison.
type ComparisonProject struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// ChangeLayers maps each change category to a map layer id.
type ChangeLayers struct {
	Added     string `json:"added"`
	Changed   string `json:"changed"`
	Deleted   string `json:"deleted"`
	Unchanged string `json:"unchanged"`
}

// Categories returns the layers keyed by change category.
func (c ChangeLayers) Categories() map[string]string {
	return map[string]string{
		"added":     c.Added,
		"changed":   c.Changed,
		"deleted":   c.Deleted,
		"unchanged": c.Unchanged,
	}
}

// ComparisonResult is the outcome of a finished comparison.
type ComparisonResult struct {
	LayerObjects ChangeLayers `json:"layer_objects"`
	ProjectIDs   []int64      `json:"project_ids"`
}

// Comparison is a derived analysis of two finished same-type projects.
type Comparison struct {
	ID          int64             `json:"id"`
	Project1    ComparisonProject `json:"project_1"`
	Project2    ComparisonProject `json:"project_2"`
	Type        ProjectType       `json:"type"`
	Status      ProjectStatus     `json:"status"`
	TaskID      string            `json:"task_id,omitempty"`
	CreatedAt   string            `json:"created_at"`
	ErrorCode   string            `json:"error_code,omitempty"`
	Description string            `json:"description,omitempty"`
	TaskResult  *ComparisonResult `json:"task_result,omitempty"`

	Info string `json:"-"`
}

// ComparisonTask is returned when a comparison starts. ProjectIDs holds the
// new comparison's id.
type ComparisonTask struct {
	Task
	ProjectIDs int64 `json:"project_ids"`
}
