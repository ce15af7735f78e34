// Package model defines the records kept in the durable store
package model

import "time"

// Roles attached to an authenticated identity.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Processing states for a submitted file. Completed and Error are terminal.
const (
	StatusUploaded   = "uploaded"
	StatusStarted    = "started"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// User is the stored account record. PasswordHash must survive the
// store round trip so logins can verify against it; aggregate reads
// clear it before the record leaves the service layer.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role"`
}

// FileMetadata describes one uploaded file. Files are unique per
// (owner, fileName) and a later save overwrites the earlier one.
type FileMetadata struct {
	Owner    string `json:"user"`
	FileName string `json:"fileName"`

	// Size stays nil until the uploaded object is inspected. The source
	// of the upload only reports a name, not a byte count.
	Size       *int64  `json:"size"`
	Format     *string `json:"format,omitempty"`
	Resolution *string `json:"resolution,omitempty"`

	UploadTime time.Time `json:"uploadTime"`
	Status     string    `json:"status"`
}

// ProgressRecord is the single live progress entry for a file. It's
// overwritten on every update, no history is kept.
type ProgressRecord struct {
	Owner       string    `json:"user"`
	FileName    string    `json:"fileName"`
	Progress    int       `json:"progress"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ActivityRecord is an append-only log entry. Never updated or deleted.
type ActivityRecord struct {
	Owner       string    `json:"user"`
	ActivityID  string    `json:"activityId"`
	Description string    `json:"activity"`
	Timestamp   time.Time `json:"timestamp"`
}

// PendingTransfer tracks a presigned upload that hasn't been confirmed yet.
type PendingTransfer struct {
	ID          string    `json:"id"`
	Owner       string    `json:"user"`
	FileName    string    `json:"fileName"`
	FileKey     string    `json:"fileKey"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
