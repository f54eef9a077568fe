package model

import "time"

// DocumentRecord is the metadata describing one stored binary.
// This is a pure domain model with no database-specific dependencies or tags.
// Records are created only after their blob is stored and are never mutated afterwards.
type DocumentRecord struct {
	ID              string    `json:"id"`
	OwnerName       string    `json:"owner_name"`
	OwnerEmail      string    `json:"owner_email"`
	DisplayFileName string    `json:"display_file_name"`
	BlobKey         string    `json:"blob_key"`
	ContentType     string    `json:"content_type"`
	Size            int64     `json:"size"`
	CreatedAt       time.Time `json:"created_at"`
}
