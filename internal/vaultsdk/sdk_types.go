package vaultsdk

import "time"

// ChangeType is the wire name of a vault mutation.
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeModify ChangeType = "modify"
	ChangeTypeDelete ChangeType = "delete"
	ChangeTypeRename ChangeType = "rename"
)

// Change is one enriched change record in an outbound payload.
// Content is a pointer so a failed hydration serializes as an explicit
// null rather than an omitted field.
type Change struct {
	Type      ChangeType `json:"type"`
	FilePath  string     `json:"filePath"`
	FileName  string     `json:"fileName,omitempty"`
	Folder    string     `json:"folder,omitempty"`
	Content   *string    `json:"content"`
	OldPath   string     `json:"oldPath,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Ctime     int64      `json:"ctime,omitempty"`
	Mtime     int64      `json:"mtime,omitempty"`
	Size      int64      `json:"size,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// ChangePayload is the envelope of one outbound delivery.
type ChangePayload struct {
	Timestamp     time.Time `json:"timestamp"`
	IsInitialSync bool      `json:"isInitialSync"`
	Changes       []*Change `json:"changes"`
}

// DeliveryResult classifies one delivery attempt. The payload is a single
// transport unit: on failure every change is reported as errored.
type DeliveryResult struct {
	SuccessCount int
	Errors       []string
}

func (r *DeliveryResult) Failed() bool {
	return len(r.Errors) > 0
}

// Document is one remote document returned by the documents endpoint.
type Document struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Path     string `json:"path,omitempty"`
}

// DocumentsResponse is the inbound fetch response.
type DocumentsResponse struct {
	Documents []*Document `json:"documents"`
}
