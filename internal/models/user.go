package models

// Role is a user's permission level.
type Role string

const (
	RoleUser  Role = "user"
	RoleML    Role = "ml_user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleML || r == RoleAdmin
}

// RoleFilter filters the user list; FilterAll means every role.
type RoleFilter string

// User is a platform account.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	CreatedAt    string `json:"created_at"`
	IsActive     bool   `json:"is_active"`
	ExternalUser bool   `json:"external_user"`
}

// Group is a named set of users.
type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Users     []User `json:"users"`
	CreatedAt string `json:"created_at"`
}

type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordParams struct {
	ID              int64  `json:"id"`
	OldPassword     string `json:"old_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RestoreAccessParams struct {
	Email string `json:"email"`
}

type ResetPasswordParams struct {
	Key             string `json:"-"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type CreateUserParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type UpdateUserParams struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type UpdateUserStatusParams struct {
	ID     int64 `json:"id"`
	Status bool  `json:"status"`
}

type CreateGroupParams struct {
	Name string `json:"name"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// MapToken is a short-lived token for the map service.
type MapToken struct {
	Token   string `json:"token"`
	Expires string `json:"expires"` // unix milliseconds
	SSL     bool   `json:"ssl"`
}
