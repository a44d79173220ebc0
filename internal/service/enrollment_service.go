package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/repository"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/middleware/requestid"
)

type enrollmentStore interface {
	InTx(ctx context.Context, fn func(repository.EnrollmentUnit) error) error
}

type admissionReader interface {
	FindByID(ctx context.Context, id string) (*models.AdmissionInquiry, error)
	ListPending(ctx context.Context) ([]models.AdmissionInquiry, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditMeta identifies who triggered an administrative operation.
type AuditMeta struct {
	UserID    string
	IP        string
	UserAgent string
}

func (m AuditMeta) entry(action, resource, resourceID string, values map[string]interface{}) *models.AuditLog {
	log := &models.AuditLog{Action: action, Resource: resource, IPAddress: m.IP, UserAgent: m.UserAgent}
	if m.UserID != "" {
		userID := m.UserID
		log.UserID = &userID
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if len(values) > 0 {
		log.NewValues, _ = json.Marshal(values)
	}
	return log
}

// EnrollmentConfig tunes the enrollment engine.
type EnrollmentConfig struct {
	CollisionRetries int
}

// errPrefixMoved signals that the inquiry's class changed between the unlocked read and the row
// lock, so the prefix lock held is the wrong one.
var errPrefixMoved = errors.New("inquiry prefix changed while enrolling")

// EnrollmentService turns pending admission inquiries into active students with portal credentials.
type EnrollmentService struct {
	store      enrollmentStore
	admissions admissionReader
	audit      auditRecorder
	deriver    *credential.Deriver
	locker     *credential.PrefixLocker
	metrics    *MetricsService
	logger     *zap.Logger
	retries    int
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(store enrollmentStore, admissions admissionReader, audit auditRecorder, deriver *credential.Deriver, locker *credential.PrefixLocker, metrics *MetricsService, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deriver == nil {
		deriver = credential.NewDeriver(credential.Options{Logger: logger})
	}
	if locker == nil {
		locker = credential.NewPrefixLocker()
	}
	retries := cfg.CollisionRetries
	if retries < 0 {
		retries = 0
	}
	return &EnrollmentService{
		store:      store,
		admissions: admissions,
		audit:      audit,
		deriver:    deriver,
		locker:     locker,
		metrics:    metrics,
		logger:     logger,
		retries:    retries,
	}
}

// Enroll issues credentials for one pending inquiry. The student insert and the inquiry status
// flip commit together; an inquiry that is already enrolled yields ErrAlreadyEnrolled carrying
// its login id.
func (s *EnrollmentService) Enroll(ctx context.Context, inquiryID string, meta AuditMeta) (*models.EnrollResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := s.enrollOnce(ctx, inquiryID)
		if err == nil {
			s.metrics.RecordEnrollment(EnrollOutcomeEnrolled)
			s.logger.Info("inquiry enrolled",
				zap.String("request_id", requestid.FromContext(ctx)),
				zap.String("inquiry_id", inquiryID),
				zap.String("login_id", result.LoginID),
				zap.Int("attempt", attempt+1))
			s.recordAudit(ctx, meta.entry(models.AuditActionEnroll, "admission", inquiryID, map[string]interface{}{
				"login_id":   result.LoginID,
				"student_id": result.StudentID,
			}))
			return result, nil
		}

		retryable := errors.Is(err, repository.ErrDuplicateLogin) || errors.Is(err, errPrefixMoved)
		if !retryable {
			if errors.Is(err, appErrors.ErrAlreadyEnrolled) {
				s.metrics.RecordEnrollment(EnrollOutcomeDuplicate)
			} else {
				s.metrics.RecordEnrollment(EnrollOutcomeFailed)
			}
			return nil, err
		}
		if errors.Is(err, repository.ErrDuplicateLogin) {
			s.metrics.RecordLoginCollision()
		}
		if attempt >= s.retries {
			s.metrics.RecordEnrollment(EnrollOutcomeCollision)
			s.logger.Error("login id collision persisted after retries",
				zap.String("request_id", requestid.FromContext(ctx)),
				zap.String("inquiry_id", inquiryID),
				zap.Int("attempts", attempt+1))
			return nil, appErrors.WrapAs(err, appErrors.ErrLoginCollision, "could not allocate a unique login id, try again")
		}
		s.logger.Warn("retrying enrollment", zap.String("inquiry_id", inquiryID), zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

func (s *EnrollmentService) enrollOnce(ctx context.Context, inquiryID string) (*models.EnrollResult, error) {
	inquiry, err := s.admissions.FindByID(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admission inquiry not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load admission inquiry")
	}
	if inquiry.IsEnrolled() {
		return nil, alreadyEnrolled(inquiry)
	}

	prefix, err := s.deriver.Prefix(*inquiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class must contain a grade number")
	}

	release, err := s.locker.Lock(ctx, prefix)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "timed out waiting to issue a login id")
	}
	defer release()

	var result *models.EnrollResult
	err = s.store.InTx(ctx, func(unit repository.EnrollmentUnit) error {
		locked, err := unit.LockInquiry(ctx, inquiryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "admission inquiry not found")
			}
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to lock admission inquiry")
		}
		if locked.IsEnrolled() {
			return alreadyEnrolled(locked)
		}
		current, err := s.deriver.Prefix(*locked)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class must contain a grade number")
		}
		if current != prefix {
			return errPrefixMoved
		}

		count, err := unit.CountLoginPrefix(ctx, prefix)
		if err != nil {
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to count issued login ids")
		}
		highest, err := unit.MaxLoginSerial(ctx, prefix)
		if err != nil {
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to read issued login ids")
		}
		floor := credential.FirstSerial + count
		if highest >= floor {
			floor = highest + 1
		}
		serial, err := unit.ReserveSerial(ctx, prefix, floor)
		if err != nil {
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to reserve login serial")
		}
		cred := s.deriver.Issue(*locked, prefix, serial)

		origin := locked.ID
		student := &models.ActiveStudent{
			Name:              locked.StudentName,
			Class:             locked.Class,
			ContactNumber:     locked.ContactNumber,
			DOB:               cred.DOB,
			LoginID:           cred.LoginID,
			OriginalStudentID: &origin,
		}
		if err := unit.InsertStudent(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicateLogin) {
				return err
			}
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to create active student")
		}
		if err := unit.MarkEnrolled(ctx, locked.ID, cred.LoginID); err != nil {
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to mark inquiry enrolled")
		}

		result = &models.EnrollResult{
			InquiryID: locked.ID,
			StudentID: student.ID,
			Name:      student.Name,
			Class:     student.Class,
			LoginID:   cred.LoginID,
			Password:  cred.Password,
			Serial:    cred.Serial,
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) || errors.Is(err, repository.ErrDuplicateLogin) || errors.Is(err, errPrefixMoved) {
			return nil, err
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "enrollment transaction failed")
	}
	return result, nil
}

// EnrollAll enrolls every pending inquiry one after another, oldest first. Failures are collected
// and do not stop the batch; cancellation of ctx stops it between items.
func (s *EnrollmentService) EnrollAll(ctx context.Context, meta AuditMeta) (*models.BatchEnrollResult, error) {
	pending, err := s.admissions.ListPending(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list pending inquiries")
	}

	batch := &models.BatchEnrollResult{Enrolled: []models.EnrollResult{}, Failed: []models.EnrollFailure{}}
	for _, inquiry := range pending {
		if ctx.Err() != nil {
			batch.Cancelled = true
			break
		}
		batch.Processed++
		result, err := s.Enroll(ctx, inquiry.ID, meta)
		if err != nil {
			appErr := appErrors.FromError(err)
			batch.Failed = append(batch.Failed, models.EnrollFailure{InquiryID: inquiry.ID, Code: appErr.Code, Reason: appErr.Message})
			s.logger.Warn("batch enrollment item failed", zap.String("inquiry_id", inquiry.ID), zap.Error(err))
			continue
		}
		batch.Enrolled = append(batch.Enrolled, *result)
		batch.SuccessCount++
	}

	s.logger.Info("batch enrollment finished",
		zap.Int("pending", len(pending)),
		zap.Int("processed", batch.Processed),
		zap.Int("enrolled", batch.SuccessCount),
		zap.Int("failed", len(batch.Failed)),
		zap.Bool("cancelled", batch.Cancelled))
	return batch, nil
}

// Unenroll deletes an active student and returns the linked inquiry, if any, to pending. The
// student's serial is not reissued.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID string, meta AuditMeta) (*models.ActiveStudent, error) {
	var removed *models.ActiveStudent
	err := s.store.InTx(ctx, func(unit repository.EnrollmentUnit) error {
		student, err := unit.LockStudent(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "active student not found")
			}
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to lock active student")
		}
		if err := unit.DeleteStudent(ctx, student.ID); err != nil {
			return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to delete active student")
		}
		if student.OriginalStudentID != nil && *student.OriginalStudentID != "" {
			if err := unit.ResetInquiry(ctx, *student.OriginalStudentID); err != nil {
				return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to reset admission inquiry")
			}
		}
		removed = student
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "unenroll transaction failed")
	}

	values := map[string]interface{}{"login_id": removed.LoginID}
	if removed.OriginalStudentID != nil {
		values["inquiry_id"] = *removed.OriginalStudentID
	}
	s.recordAudit(ctx, meta.entry(models.AuditActionUnenroll, "active_student", removed.ID, values))
	s.logger.Info("student unenrolled", zap.String("student_id", removed.ID), zap.String("login_id", removed.LoginID))
	return removed, nil
}

func (s *EnrollmentService) recordAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func alreadyEnrolled(inquiry *models.AdmissionInquiry) *appErrors.Error {
	loginID := ""
	if inquiry.LoginID != nil {
		loginID = *inquiry.LoginID
	}
	return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("inquiry already enrolled as %s", loginID))
}
