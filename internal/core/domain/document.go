package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the metadata record for one uploaded file. The confidential
// flag is set at upload time and never changes afterwards; confidential
// documents keep their metadata but are never embedded and never retrieved.
type Document struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	StoragePath  string         `json:"storage_path"`
	Confidential bool           `json:"confidential"`
	SizeBytes    int64          `json:"size_bytes"`
	ChunkCount   int            `json:"chunk_count"`
	ChunkSize    int            `json:"chunk_size"`
	ChunkOverlap int            `json:"chunk_overlap"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
