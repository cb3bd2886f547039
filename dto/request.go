package dto

import (
	"mime/multipart"
	"path/filepath"
	"strings"
)

// DocumentUploadRequest carries PDFs posted to the extraction endpoints.
type DocumentUploadRequest struct {
	Files []*multipart.FileHeader `form:"files[]" binding:"required"`
}

// Validate performs basic validation on the request
func (r *DocumentUploadRequest) Validate() error {
	if len(r.Files) == 0 {
		return ErrNoFiles
	}
	for _, f := range r.Files {
		if !strings.EqualFold(filepath.Ext(f.Filename), ".pdf") {
			return NewValidationError("files[]", f.Filename, "only PDF documents are accepted")
		}
	}
	return nil
}

// SyncRequest carries workbook rows to be merged into the store.
type SyncRequest struct {
	Cliente string   `json:"cliente"`
	Rows    []RawRow `json:"rows"`
}

func (r *SyncRequest) Validate() error {
	if len(r.Rows) == 0 {
		return NewValidationError("rows", nil, "at least one row is required")
	}
	return nil
}

// ListQuery holds paging and filter parameters for expediente listings.
type ListQuery struct {
	Cliente string `form:"cliente"`
	Page    int    `form:"page"`
	Limit   int    `form:"limit"`
}

// Normalize applies paging defaults.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	q.Cliente = NormalizeClient(q.Cliente)
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
