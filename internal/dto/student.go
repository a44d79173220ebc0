package dto

// CreateStudentRequest inserts an active student directly, bypassing the intake pipeline.
type CreateStudentRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	Class         string `json:"class" validate:"required,max=40"`
	ContactNumber string `json:"contact_number" validate:"omitempty,len=10,numeric"`
	DOB           string `json:"dob" validate:"required,datetime=2006-01-02"`
	LoginID       string `json:"login_id" validate:"required,alphanum,min=4,max=32"`
}

// StudentLoginResponse is returned after a successful portal sign-in.
type StudentLoginResponse struct {
	LoginID string `json:"login_id"`
	Name    string `json:"name"`
	Class   string `json:"class"`
}
