package model

import "time"

// Image describes a stored upload as returned by the upload endpoints.
// UploadDate is taken from the stored object's modification time, never persisted separately.
type Image struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	UploadDate   time.Time `json:"uploadDate"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
}

// CatalogEntry is one row of the image listing.
type CatalogEntry struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
}
