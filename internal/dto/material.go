package dto

// MaterialRequest carries material metadata. Either a file is uploaded alongside it or URL
// points at an external document.
type MaterialRequest struct {
	Title   string `form:"title" json:"title" validate:"required,max=200"`
	Subject string `form:"subject" json:"subject" validate:"required,max=80"`
	Class   string `form:"class" json:"class" validate:"required,max=40"`
	URL     string `form:"url" json:"url" validate:"omitempty,url"`
}
