package models

// MLStatus is the ML model lifecycle.
type MLStatus string

const (
	MLPreparing  MLStatus = "Preparing"
	MLNotTrained MLStatus = "Not trained"
	MLInTraining MLStatus = "In the training"
	MLTrained    MLStatus = "Trained"
	MLReady      MLStatus = "Ready to use"
	MLError      MLStatus = "Error"
)

// Settled reports whether the model is waiting on the user rather than on
// a server task.
func (s MLStatus) Settled() bool {
	return s != MLPreparing && s != MLInTraining
}

// MLTab selects the default or user-created model table.
type MLTab string

const (
	MLTabDefault MLTab = "default"
	MLTabCreated MLTab = "created"
)

// Valid reports whether t is a known tab.
func (t MLTab) Valid() bool {
	return t == MLTabDefault || t == MLTabCreated
}

// MLModelView is the detection architecture family.
type MLModelView string

const (
	ViewYolo    MLModelView = "yolov8"
	ViewYoloDet MLModelView = "yolov8_det"
	ViewDeeplab MLModelView = "deeplabv3"
)

// DataGarbage is an extra model data type used for panorama projects.
const DataGarbage = "garbage"

// MLTaskResult lists what a training run discovered.
type MLTaskResult struct {
	Classes []string `json:"classes"`
	Objects []string `json:"objects"`
}

// MLModel is a detection or segmentation model.
type MLModel struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Status        MLStatus      `json:"status"`
	TypeOfData    []string      `json:"type_of_data"`
	TypeOfObjects []string      `json:"type_of_objects"`
	CreatedAt     string        `json:"created_at"`
	CreatedBy     string        `json:"created_by,omitempty"`
	DefaultModel  bool          `json:"default_model,omitempty"`
	TaskResult    *MLTaskResult `json:"task_result,omitempty"`
	MLFlowURL     string        `json:"mlflow_url,omitempty"`
	ErrorCode     string        `json:"error_code,omitempty"`
	Description   string        `json:"description,omitempty"`

	Info string `json:"-"`
}

// CreateMLModelParams is the body of a create-model request.
type CreateMLModelParams struct {
	Name       string `json:"name"`
	Link       string `json:"link"`
	TypeOfData string `json:"type_of_data"`
}

// StartTrainingParams is the body of a training request.
type StartTrainingParams struct {
	ID          int64    `json:"id"`
	TypeModel   string   `json:"type_model"`
	Epochs      int      `json:"epochs"`
	ScaleFactor float64  `json:"scale_factor"`
	Classes     []string `json:"classes"`
}

// MLModelTask is returned by model create/train/finish calls.
type MLModelTask struct {
	Task
	ProjectID int64 `json:"project_id"`
}
