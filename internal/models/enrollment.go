package models

// EnrollResult is returned once per enrollment; the password is never persisted in readable form
// beyond the student's date of birth, so callers must hand it over immediately.
type EnrollResult struct {
	InquiryID string `json:"inquiry_id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	LoginID   string `json:"login_id"`
	Password  string `json:"password"`
	Serial    int    `json:"serial"`
}

// EnrollFailure records why a single inquiry in a batch could not be enrolled.
type EnrollFailure struct {
	InquiryID string `json:"inquiry_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BatchEnrollResult summarises an enroll-all run.
type BatchEnrollResult struct {
	Processed    int             `json:"processed"`
	SuccessCount int             `json:"success_count"`
	Enrolled     []EnrollResult  `json:"enrolled"`
	Failed       []EnrollFailure `json:"failed"`
	Cancelled    bool            `json:"cancelled,omitempty"`
}
