package models

import "time"

// StudyMaterial is a note or PDF published for a class and subject.
type StudyMaterial struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Subject    string     `json:"subject"`
	Class      string     `json:"class"`
	URL        string     `json:"url"`
	StorageKey string     `json:"storage_key,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// MaterialFilter narrows material listings.
type MaterialFilter struct {
	Class   string
	Subject string
}
