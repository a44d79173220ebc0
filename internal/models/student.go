package models

import "time"

// ActiveStudent is an enrolled student holding portal credentials.
// DOB is stored as YYYY-MM-DD and doubles as password material.
type ActiveStudent struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Class             string    `db:"class" json:"class"`
	ContactNumber     string    `db:"contact_number" json:"contact_number"`
	DOB               string    `db:"dob" json:"dob"`
	LoginID           string    `db:"login_id" json:"login_id"`
	OriginalStudentID *string   `db:"original_student_id" json:"original_student_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ActiveStudentFilter encapsulates allowed search parameters for listing students.
type ActiveStudentFilter struct {
	Search    string
	Class     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
