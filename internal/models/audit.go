package models

import "time"

// Audit actions recorded for admin activity.
const (
	AuditActionLogin           = "LOGIN"
	AuditActionLogout          = "LOGOUT"
	AuditActionEnroll          = "ENROLL"
	AuditActionUnenroll        = "UNENROLL"
	AuditActionAdmissionUpdate = "ADMISSION_UPDATE"
	AuditActionAdmissionPurge  = "ADMISSION_PURGE"
	AuditActionStudentCreate   = "STUDENT_CREATE"
	AuditActionMaterialCreate  = "MATERIAL_CREATE"
	AuditActionMaterialUpdate  = "MATERIAL_UPDATE"
	AuditActionMaterialDelete  = "MATERIAL_DELETE"
	AuditActionQuizCreate      = "QUIZ_CREATE"
	AuditActionQuizDelete      = "QUIZ_DELETE"
	AuditActionLiveQuizSet     = "LIVE_QUIZ_SET"
	AuditActionMarkCreate      = "MARK_CREATE"
	AuditActionMarkDelete      = "MARK_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
