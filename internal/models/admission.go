package models

import (
	"time"

	"github.com/lib/pq"
)

// AdmissionStatus tracks where an inquiry sits in the intake pipeline.
type AdmissionStatus string

const (
	AdmissionStatusPending  AdmissionStatus = "pending"
	AdmissionStatusEnrolled AdmissionStatus = "enrolled"
)

// Valid reports whether the status is one of the known values.
func (s AdmissionStatus) Valid() bool {
	return s == AdmissionStatusPending || s == AdmissionStatusEnrolled
}

// AdmissionInquiry is a family's request for enrollment submitted through the intake form.
type AdmissionInquiry struct {
	ID                  string          `db:"id" json:"id"`
	StudentName         string          `db:"student_name" json:"student_name"`
	FatherName          string          `db:"father_name" json:"father_name"`
	MotherName          string          `db:"mother_name" json:"mother_name"`
	DOB                 string          `db:"dob" json:"dob"`
	Gender              string          `db:"gender" json:"gender"`
	ContactNumber       string          `db:"contact_number" json:"contact_number"`
	ParentContactNumber string          `db:"parent_contact_number" json:"parent_contact_number"`
	Email               string          `db:"email" json:"email"`
	Address             string          `db:"address" json:"address"`
	Class               string          `db:"class" json:"class"`
	SchoolName          string          `db:"school_name" json:"school_name"`
	Board               string          `db:"board" json:"board"`
	InterestedSubjects  pq.StringArray  `db:"interested_subjects" json:"interested_subjects"`
	StudiedWithUs       string          `db:"studied_with_us" json:"studied_with_us"`
	Session             string          `db:"session" json:"session"`
	ReferralSource      string          `db:"referral_source" json:"referral_source"`
	AdditionalNotes     string          `db:"additional_notes" json:"additional_notes"`
	PhotoKey            string          `db:"photo_key" json:"-"`
	PhotoURL            string          `db:"photo_url" json:"photo_url"`
	Status              AdmissionStatus `db:"status" json:"status"`
	LoginID             *string         `db:"login_id" json:"login_id"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// IsEnrolled reports whether the inquiry already carries an issued login.
func (a *AdmissionInquiry) IsEnrolled() bool {
	return a != nil && a.Status == AdmissionStatusEnrolled
}

// AdmissionFilter captures list parameters for inquiries.
type AdmissionFilter struct {
	Status    AdmissionStatus
	Class     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
