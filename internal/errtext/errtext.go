// Package errtext maps GeoAI server error codes to human-readable messages.
package errtext

// Other is the generic fallback code.
const Other = "OTHER"

// GeneralError is shown when an error carries neither a known code nor a message.
const GeneralError = "Something went wrong. Please try again later."

// Field identifies the form field an inline validation error belongs to.
type Field string

const (
	FieldNone     Field = ""
	FieldName     Field = "name"
	FieldLink     Field = "link"
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

var messages = map[string]string{
	Other: "Unknown error",

	// projects
	"PROJECT_NAME_TOO_SHORT":         "Project name is too short",
	"PROJECT_EXIST":                  "A project with this name already exists",
	"PROJECT_NOT_EXIST":              "Project does not exist",
	"PROJECTS_NOT_EXISTS":            "Projects do not exist",
	"FOLDER_IS_EMPTY":                "Folder is empty",
	"FOLDER_NOT_EXIST":               "Folder does not exist",
	"FOLDER_EMPTY_OR_NOT_EXIST":      "Folder is empty or does not exist",
	"TIF_OR_JPG_FILES_NOT_FOUND":     "No TIF or JPG files found in the folder",
	"MORE_OR_LESS_THAN_ONE_LAS_FILE": "The folder must contain exactly one LAS file",
	"NEXTCLOUD_EMPTY_FOLDER":         "Storage folder is empty",
	"NEXTCLOUD_FILES_NOT_FOUND":      "Files were not found in storage",
	"INVALID_FORMAT_FILE":            "Invalid file format",
	"INVALID_FORMAT_JPG_CSV_FILE":    "Invalid JPG or CSV file format",
	"INVALID_TIF_FILE":               "Invalid TIF file",
	"SOURCE_DATA_FORMAT_ERROR":       "Source data has an invalid format",
	"CREATE_DETECTION_TASK_FAILED":   "Failed to start detection",
	"CREATE_SATELLITE_TASK_FAILED":   "Failed to start satellite detection",
	"SUPER_RESOLUTION_FATAL_ERROR":   "Super resolution failed",

	// comparisons
	"CREATE_COMPARING_TASK_FAILED": "Failed to start comparison",
	"TASK_COMPARE_FAILED":          "Comparison failed",
	"DIFFERENT_PROJECT_TYPES":      "Projects must have the same type",
	"SAME_PROJECTS":                "Select two different projects",
	"TWO_PROJECTS_COMPARE":         "Exactly two projects must be selected",
	"PROJECTS_NOT_COMPLETED":       "Only completed projects can be compared",

	// ml
	"CREATE_ML_MODEL_ERROR":              "Failed to create the model",
	"DEFAULT_ML_MODEL_CANNOT_BE_DELETED": "Default models cannot be deleted",
	"ML_MODEL_NAME_ALREADY_EXIST":        "A model with this name already exists",
	"ML_MODEL_NOT_EXIST":                 "Model does not exist",
	"ML_TYPE_NOT_EXIST":                  "Model type does not exist",
	"SAVE_ML_MODEL_ERROR":                "Failed to save the model",
	"TRANING_ML_MODEL_ERROR":             "Model training failed",
	"UNLOAD_MODEL_ERROR":                 "Failed to unload the model",

	// auth
	"ADMIN_REQUIRED":                       "Administrator rights are required",
	"EMAIL_ALREADY_REGISTERED":             "This email is already registered",
	"EMPTY_CONFIRM_PASSWORD":               "Confirm the password",
	"EMPTY_EMAIL":                          "Email is required",
	"EMPTY_OLD_PASSWORD":                   "Current password is required",
	"EMPTY_PASSWORD":                       "Password is required",
	"INTERNAL_USER_CANNOT_CHANGE_PASSWORD": "Directory users cannot change their password here",
	"INTERNAL_USER_CANNOT_DELETE":          "Directory users cannot be deleted",
	"INTERNAL_USER_CANNOT_RESTORE_ACCESS":  "Directory users cannot restore access here",
	"INVALID_CHANGE_PASSWORD":              "Current password is incorrect",
	"INVALID_EMAIL":                        "Invalid email",
	"INVALID_LOGIN_PASSWORD":               "Invalid email or password",
	"INVALID_PASSWORD":                     "Password does not meet the requirements",
	"INVALID_RESTORE_ACCESS_PASSWORD":      "Invalid password",
	"INVALID_ROLE":                         "Invalid role",
	"INVALID_TOKEN":                        "Session expired, please log in again",
	"LINK_HAS_ENDED":                       "The link has expired",
	"PASSWORDS_DO_NOT_MATCH":               "Passwords do not match",
	"PASSWORD_MATCH_OLD_PASSWORD":          "New password must differ from the current one",
	"SOMETHING_WENT_WRONG":                 GeneralError,
	"USER_NOT_FOUND":                       "User not found",
}

var fields = map[string]Field{
	"PROJECT_NAME_TOO_SHORT":         FieldName,
	"PROJECT_EXIST":                  FieldName,
	"FOLDER_IS_EMPTY":                FieldLink,
	"FOLDER_NOT_EXIST":               FieldLink,
	"FOLDER_EMPTY_OR_NOT_EXIST":      FieldLink,
	"TIF_OR_JPG_FILES_NOT_FOUND":     FieldLink,
	"MORE_OR_LESS_THAN_ONE_LAS_FILE": FieldLink,
	"ML_MODEL_NAME_ALREADY_EXIST":    FieldName,
	"EMAIL_ALREADY_REGISTERED":       FieldEmail,
	"INVALID_EMAIL":                  FieldEmail,
	"EMPTY_EMAIL":                    FieldEmail,
	"INVALID_PASSWORD":               FieldPassword,
	"PASSWORDS_DO_NOT_MATCH":         FieldPassword,
	"PASSWORD_MATCH_OLD_PASSWORD":    FieldPassword,
	"INVALID_CHANGE_PASSWORD":        FieldPassword,
}

// Lookup returns the message for a known code.
func Lookup(code string) (string, bool) {
	msg, ok := messages[code]
	return msg, ok
}

// Describe renders the display text for an entity or error.
// Precedence: known code translation, then raw description, then the generic
// "other error" text.
func Describe(code, description string) string {
	if code != "" {
		if msg, ok := messages[code]; ok {
			return msg
		}
	}
	if description != "" {
		return description
	}
	return messages[Other]
}

// FieldFor returns the form field a server error code should be shown under.
// FieldNone means the error belongs to the form as a whole.
func FieldFor(code string) Field {
	return fields[code]
}
