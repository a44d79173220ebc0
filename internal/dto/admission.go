package dto

import "github.com/pp-coaching/coaching-api/internal/models"

// CreateAdmissionRequest is the public intake form payload.
type CreateAdmissionRequest struct {
	StudentName         string   `json:"student_name" validate:"required,max=120"`
	FatherName          string   `json:"father_name" validate:"omitempty,max=120"`
	MotherName          string   `json:"mother_name" validate:"omitempty,max=120"`
	DOB                 string   `json:"dob" validate:"required,datetime=2006-01-02"`
	Gender              string   `json:"gender" validate:"omitempty,max=20"`
	ContactNumber       string   `json:"contact_number" validate:"required,len=10,numeric"`
	ParentContactNumber string   `json:"parent_contact_number" validate:"omitempty,len=10,numeric"`
	Email               string   `json:"email" validate:"omitempty,email"`
	Address             string   `json:"address" validate:"omitempty,max=500"`
	Class               string   `json:"class" validate:"required,max=40"`
	SchoolName          string   `json:"school_name" validate:"omitempty,max=160"`
	Board               string   `json:"board" validate:"omitempty,max=40"`
	InterestedSubjects  []string `json:"interested_subjects" validate:"omitempty,dive,required"`
	StudiedWithUs       string   `json:"studied_with_us" validate:"omitempty,oneof=yes no"`
	Session             string   `json:"session" validate:"omitempty,max=20"`
	ReferralSource      string   `json:"referral_source" validate:"omitempty,max=120"`
	AdditionalNotes     string   `json:"additional_notes" validate:"omitempty,max=2000"`
	PhotoKey            string   `json:"photo_key" validate:"omitempty,max=300"`
}

// UpdateAdmissionRequest is an administrative edit. Nil fields are left untouched. Setting
// Status to pending on an enrolled inquiry is only allowed once its student has been removed.
type UpdateAdmissionRequest struct {
	StudentName   *string                 `json:"student_name" validate:"omitempty,max=120"`
	DOB           *string                 `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	ContactNumber *string                 `json:"contact_number" validate:"omitempty,len=10,numeric"`
	Email         *string                 `json:"email" validate:"omitempty,email"`
	Address       *string                 `json:"address" validate:"omitempty,max=500"`
	Class         *string                 `json:"class" validate:"omitempty,max=40"`
	SchoolName    *string                 `json:"school_name" validate:"omitempty,max=160"`
	Board         *string                 `json:"board" validate:"omitempty,max=40"`
	Notes         *string                 `json:"additional_notes" validate:"omitempty,max=2000"`
	Status        *models.AdmissionStatus `json:"status" validate:"omitempty,oneof=pending enrolled"`
}

// PhotoUploadResponse returns where an uploaded intake photo lives.
type PhotoUploadResponse struct {
	PhotoKey string `json:"photo_key"`
	PhotoURL string `json:"photo_url"`
}
