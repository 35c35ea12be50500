package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectType is the kind of imagery a project holds.
type ProjectType string

const (
	ProjectAerial    ProjectType = "aerial_images"
	ProjectSatellite ProjectType = "satellite_images"
	ProjectPanorama  ProjectType = "panorama_360"
)

// ParseProjectType accepts the wire value or a short alias.
func ParseProjectType(s string) (ProjectType, bool) {
	switch s {
	case string(ProjectAerial), "aerial":
		return ProjectAerial, true
	case string(ProjectSatellite), "satellite":
		return ProjectSatellite, true
	case string(ProjectPanorama), "panorama", "360":
		return ProjectPanorama, true
	}
	return "", false
}

// TypeFilter filters lists by project type; FilterAll means every type.
type TypeFilter string

// ProjectStatus is the project (and comparison) lifecycle.
type ProjectStatus string

const (
	StatusInitial    ProjectStatus = "Ready to start"
	StatusInProgress ProjectStatus = "In progress"
	StatusFinished   ProjectStatus = "Completed"
	StatusError      ProjectStatus = "Error"
)

// Terminal reports whether no further progress is expected.
func (s ProjectStatus) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// ProjectFile is one displayable input or result image.
type ProjectFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	PathTIF string `json:"path_tif,omitempty"`
}

// ProjectFileGroup is a panorama point-cloud group of images.
type ProjectFileGroup struct {
	Title   string        `json:"title"`
	Images  []ProjectFile `json:"images"`
	PCDPath string        `json:"pcd_path,omitempty"`
}

// ProjectFiles is the storage listing of a project.
type ProjectFiles struct {
	LayerID     string             `json:"layer_id"`
	AerialFiles []ProjectFile      `json:"aerial_images,omitempty"`
	Panorama    []ProjectFileGroup `json:"panorama_360,omitempty"`
}

// DetectionResult is the outcome of a finished detection run.
type DetectionResult struct {
	PathImages []string `json:"path_images"`
	LayerID    string   `json:"layer_id"`
	PCDPath    string   `json:"pcd_path,omitempty"`
}

// Project is a unit of imagery work.
type Project struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Date            string           `json:"date"`
	Link            string           `json:"link"`
	Type            ProjectType      `json:"type"`
	Status          ProjectStatus    `json:"status"`
	CreatedAt       string           `json:"created_at"`
	CreatedBy       string           `json:"created_by,omitempty"`
	ErrorCode       string           `json:"error_code,omitempty"`
	Description     string           `json:"description,omitempty"`
	InputFiles      *ProjectFiles    `json:"input_files,omitempty"`
	DetectionID     string           `json:"detection_id,omitempty"`
	TaskResult      *DetectionResult `json:"task_result,omitempty"`
	MLModel         StringList       `json:"ml_model,omitempty"`
	MLModelDeeplab  StringList       `json:"ml_model_deeplab,omitempty"`
	PreviewLayerID  string           `json:"preview_layer_id,omitempty"`
	Classes         []string         `json:"classes,omitempty"`
	SuperResolution string           `json:"super_resolution,omitempty"`

	// Info is the display text derived from ErrorCode/Description.
	Info string `json:"-"`
}

// HasModels reports whether a detection model was ever run on the project.
func (p *Project) HasModels() bool {
	return len(p.MLModel) > 0 || len(p.MLModelDeeplab) > 0
}

// ProjectDateLayout is the capture-date format the server accepts.
const ProjectDateLayout = "2006-01-02T15:04:05.000Z"

// CreateProjectParams is the body of a create-project request.
type CreateProjectParams struct {
	Name string      `json:"name"`
	Date string      `json:"date"`
	Link string      `json:"link"`
	Type ProjectType `json:"type"`
}

// NewCreateProjectParams formats the capture date the way the server expects.
func NewCreateProjectParams(name, link string, typ ProjectType, date time.Time) CreateProjectParams {
	return CreateProjectParams{
		Name: name,
		Link: link,
		Type: typ,
		Date: date.UTC().Format(ProjectDateLayout),
	}
}

// CreateProjectResponse pairs the new project with its preparation task.
type CreateProjectResponse struct {
	Project Project `json:"project"`
	TaskID  string  `json:"task_id"`
}

// QualityOption is one detection quality choice.
type QualityOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ImageQualities is the server's label to value object, kept in the order
// the server sent it. The first option is the default.
type ImageQualities []QualityOption

func (q *ImageQualities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("image qualities: %w", err)
	}
	if tok == nil {
		*q = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("image qualities: expected object, got %v", tok)
	}
	out := ImageQualities{}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return fmt.Errorf("image qualities: %w", err)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("image qualities %v: %w", key, err)
		}
		out = append(out, QualityOption{Label: key.(string), Value: fmt.Sprint(val)})
	}
	*q = out
	return nil
}

// MarshalJSON writes the options back as one object in their order.
func (q ImageQualities) MarshalJSON() ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, o := range q {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(o.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Default returns the first option's value.
func (q ImageQualities) Default() (string, bool) {
	if len(q) == 0 {
		return "", false
	}
	return q[0].Value, true
}

// Lookup finds the value for a label. Values are accepted as their own label.
func (q ImageQualities) Lookup(labelOrValue string) (string, bool) {
	for _, o := range q {
		if o.Label == labelOrValue || o.Value == labelOrValue {
			return o.Value, true
		}
	}
	return "", false
}

// StartDetectionParams is the body of a detection request.
type StartDetectionParams struct {
	ProjectID      int64    `json:"-"`
	Paths          []string `json:"paths"`
	MLModel        []string `json:"ml_model"`
	MLModelDeeplab []string `json:"ml_model_deeplab"`
	Quality        string   `json:"quality,omitempty"`
	SaveImageFlag  bool     `json:"save_image_flag,omitempty"`
	SaveJSONFlag   bool     `json:"save_json_flag,omitempty"`
}

// StartDetectionResponse is the task started for a detection.
type StartDetectionResponse struct {
	Task
	ProjectID int64 `json:"project_id"`
}

// MapFilesToggle is where the project page shows files.
type MapFilesToggle string

const (
	ToggleImages MapFilesToggle = "images"
	ToggleMap    MapFilesToggle = "map"
	ToggleBoth   MapFilesToggle = "both"
)

// Valid reports whether t is a known position.
func (t MapFilesToggle) Valid() bool {
	return t == ToggleImages || t == ToggleMap || t == ToggleBoth
}
