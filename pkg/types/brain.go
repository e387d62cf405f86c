package types

const (
	BRAIN_ROLE_OWNER  = "Owner"
	BRAIN_ROLE_EDITOR = "Editor"
	BRAIN_ROLE_VIEWER = "Viewer"
)

type Brain struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	LastUpdate  int64  `json:"last_update" db:"last_update"`
	CreatedAt   int64  `json:"created_at" db:"created_at"`
}

// BrainUser binds a user to a brain with a role.
type BrainUser struct {
	BrainID   string `json:"brain_id" db:"brain_id"`
	UserID    string `json:"user_id" db:"user_id"`
	Role      string `json:"role" db:"role"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
}

// UserSettings carries the per-user quota.
type UserSettings struct {
	UserID       string `json:"user_id" db:"user_id"`
	MaxBrainSize int64  `json:"max_brain_size" db:"max_brain_size"`
	UpdatedAt    int64  `json:"updated_at" db:"updated_at"`
}
