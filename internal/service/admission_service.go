package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/repository"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/export"
	"github.com/pp-coaching/coaching-api/pkg/storage"
)

const admissionPhotoFolder = "admissions/photos"

type admissionRepository interface {
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, int, error)
	FindByID(ctx context.Context, id string) (*models.AdmissionInquiry, error)
	Create(ctx context.Context, inquiry *models.AdmissionInquiry) error
	Update(ctx context.Context, inquiry *models.AdmissionInquiry, expected models.AdmissionStatus) error
	Delete(ctx context.Context, id string) error
}

type loginLookup interface {
	ExistsByLoginID(ctx context.Context, loginID string) (bool, error)
}

// AdmissionConfig tunes intake handling.
type AdmissionConfig struct {
	Institution   string
	MaxPhotoBytes int64
}

// AdmissionService handles the intake form and administrative inquiry management.
type AdmissionService struct {
	repo      admissionRepository
	students  loginLookup
	audit     auditRecorder
	files     storage.ObjectStore
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AdmissionConfig
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(repo admissionRepository, students loginLookup, audit auditRecorder, files storage.ObjectStore, validate *validator.Validate, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Institution == "" {
		cfg.Institution = "PP Coaching Institute"
	}
	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = 5 << 20
	}
	return &AdmissionService{
		repo:      repo,
		students:  students,
		audit:     audit,
		files:     files,
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create stores a new pending inquiry from the public intake form.
func (s *AdmissionService) Create(ctx context.Context, req dto.CreateAdmissionRequest) (*models.AdmissionInquiry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission form")
	}
	inquiry := &models.AdmissionInquiry{
		StudentName:         strings.TrimSpace(req.StudentName),
		FatherName:          strings.TrimSpace(req.FatherName),
		MotherName:          strings.TrimSpace(req.MotherName),
		DOB:                 req.DOB,
		Gender:              req.Gender,
		ContactNumber:       req.ContactNumber,
		ParentContactNumber: req.ParentContactNumber,
		Email:               strings.ToLower(strings.TrimSpace(req.Email)),
		Address:             strings.TrimSpace(req.Address),
		Class:               strings.TrimSpace(req.Class),
		SchoolName:          strings.TrimSpace(req.SchoolName),
		Board:               req.Board,
		InterestedSubjects:  pq.StringArray(req.InterestedSubjects),
		StudiedWithUs:       req.StudiedWithUs,
		Session:             req.Session,
		ReferralSource:      req.ReferralSource,
		AdditionalNotes:     req.AdditionalNotes,
		PhotoKey:            req.PhotoKey,
		Status:              models.AdmissionStatusPending,
	}
	if inquiry.InterestedSubjects == nil {
		inquiry.InterestedSubjects = pq.StringArray{}
	}
	if inquiry.PhotoKey != "" {
		if url, err := s.photoURL(inquiry.PhotoKey); err == nil {
			inquiry.PhotoURL = url
		}
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to submit admission form")
	}
	s.logger.Info("admission inquiry received", zap.String("inquiry_id", inquiry.ID), zap.String("class", inquiry.Class))
	return inquiry, nil
}

// UploadPhoto stores an intake photo and returns its key for the form submission.
func (s *AdmissionService) UploadPhoto(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*dto.PhotoUploadResponse, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be an image")
	}
	if size > s.cfg.MaxPhotoBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("photo exceeds %d bytes", s.cfg.MaxPhotoBytes))
	}
	if s.files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage not configured")
	}
	key := storage.NewKey(admissionPhotoFolder, filename)
	if err := s.files.Put(ctx, key, io.LimitReader(r, s.cfg.MaxPhotoBytes), contentType); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to store photo")
	}
	url, err := s.files.URL(key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve photo url")
	}
	return &dto.PhotoUploadResponse{PhotoKey: key, PhotoURL: url}, nil
}

// List returns inquiries and pagination metadata.
func (s *AdmissionService) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown admission status")
	}
	inquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list admissions")
	}
	for i := range inquiries {
		s.resolvePhoto(&inquiries[i])
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return inquiries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single inquiry.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.AdmissionInquiry, error) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admission not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load admission")
	}
	s.resolvePhoto(inquiry)
	return inquiry, nil
}

// Update applies an administrative edit. Status can only be reset to pending, and only once no
// active student holds the inquiry's login id; enrolling goes through the enrollment service.
func (s *AdmissionService) Update(ctx context.Context, id string, req dto.UpdateAdmissionRequest, meta AuditMeta) (*models.AdmissionInquiry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission payload")
	}
	inquiry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	readStatus := inquiry.Status
	changes := map[string]interface{}{}
	setString := func(field string, dst *string, value *string) {
		if value == nil {
			return
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed != *dst {
			*dst = trimmed
			changes[field] = trimmed
		}
	}
	setString("student_name", &inquiry.StudentName, req.StudentName)
	setString("dob", &inquiry.DOB, req.DOB)
	setString("contact_number", &inquiry.ContactNumber, req.ContactNumber)
	setString("email", &inquiry.Email, req.Email)
	setString("address", &inquiry.Address, req.Address)
	setString("class", &inquiry.Class, req.Class)
	setString("school_name", &inquiry.SchoolName, req.SchoolName)
	setString("board", &inquiry.Board, req.Board)
	setString("additional_notes", &inquiry.AdditionalNotes, req.Notes)

	if req.Status != nil && *req.Status != inquiry.Status {
		if *req.Status == models.AdmissionStatusEnrolled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "use the enroll operation to enroll an inquiry")
		}
		if inquiry.LoginID != nil {
			held, err := s.students.ExistsByLoginID(ctx, *inquiry.LoginID)
			if err != nil {
				return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to check linked student")
			}
			if held {
				return nil, appErrors.Clone(appErrors.ErrConflict, "remove the enrolled student before resetting the inquiry")
			}
		}
		inquiry.Status = models.AdmissionStatusPending
		inquiry.LoginID = nil
		changes["status"] = inquiry.Status
	}
	if len(changes) == 0 {
		return inquiry, nil
	}

	if err := s.repo.Update(ctx, inquiry, readStatus); err != nil {
		if errors.Is(err, repository.ErrStaleAdmission) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission changed while editing, reload and try again")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to update admission")
	}
	s.recordAudit(ctx, meta.entry(models.AuditActionAdmissionUpdate, "admission", inquiry.ID, changes))
	return inquiry, nil
}

// Purge deletes an inquiry permanently. Any student enrolled from it keeps its back-reference.
func (s *AdmissionService) Purge(ctx context.Context, id string, meta AuditMeta) error {
	inquiry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to purge admission")
	}
	if inquiry.PhotoKey != "" && s.files != nil {
		if err := s.files.Delete(ctx, inquiry.PhotoKey); err != nil {
			s.logger.Warn("failed to remove admission photo", zap.String("key", inquiry.PhotoKey), zap.Error(err))
		}
	}
	s.recordAudit(ctx, meta.entry(models.AuditActionAdmissionPurge, "admission", id, map[string]interface{}{
		"student_name": inquiry.StudentName,
		"status":       inquiry.Status,
	}))
	return nil
}

// FormPDF renders the printable admission form of an inquiry.
func (s *AdmissionService) FormPDF(ctx context.Context, id string) ([]byte, string, error) {
	inquiry, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	loginID := "-"
	if inquiry.LoginID != nil {
		loginID = *inquiry.LoginID
	}
	doc := export.FormDocument{
		Institution: s.cfg.Institution,
		Title:       "Admission Form",
		Subtitle:    fmt.Sprintf("Submitted %s", inquiry.CreatedAt.Format("02 Jan 2006")),
		Sections: []export.Section{
			{Heading: "Student", Fields: []export.Field{
				{Label: "Name", Value: inquiry.StudentName},
				{Label: "Date of Birth", Value: inquiry.DOB},
				{Label: "Gender", Value: inquiry.Gender},
				{Label: "Class", Value: inquiry.Class},
				{Label: "School", Value: inquiry.SchoolName},
				{Label: "Board", Value: inquiry.Board},
				{Label: "Subjects", Value: strings.Join(inquiry.InterestedSubjects, ", ")},
			}},
			{Heading: "Family", Fields: []export.Field{
				{Label: "Father", Value: inquiry.FatherName},
				{Label: "Mother", Value: inquiry.MotherName},
				{Label: "Contact", Value: inquiry.ContactNumber},
				{Label: "Parent Contact", Value: inquiry.ParentContactNumber},
				{Label: "Email", Value: inquiry.Email},
				{Label: "Address", Value: inquiry.Address},
			}},
			{Heading: "Office Use", Fields: []export.Field{
				{Label: "Session", Value: inquiry.Session},
				{Label: "Studied With Us", Value: inquiry.StudiedWithUs},
				{Label: "Referral", Value: inquiry.ReferralSource},
				{Label: "Status", Value: string(inquiry.Status)},
				{Label: "Login ID", Value: loginID},
				{Label: "Notes", Value: inquiry.AdditionalNotes},
			}},
		},
		GeneratedAt: time.Now(),
	}
	out, err := s.pdf.RenderForm(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render admission form")
	}
	return out, fmt.Sprintf("admission_%s.pdf", slug(inquiry.StudentName)), nil
}

// CredentialSlipPDF renders the one-time slip handed to the family after enrollment.
func (s *AdmissionService) CredentialSlipPDF(result *models.EnrollResult) ([]byte, string, error) {
	doc := export.FormDocument{
		Institution: s.cfg.Institution,
		Title:       "Student Portal Credentials",
		Subtitle:    result.Name,
		Sections: []export.Section{
			{Heading: "Enrollment", Fields: []export.Field{
				{Label: "Name", Value: result.Name},
				{Label: "Class", Value: result.Class},
			}},
			{Heading: "Sign In", Fields: []export.Field{
				{Label: "Login ID", Value: result.LoginID},
				{Label: "Password", Value: result.Password},
			}},
		},
		Footer:      "Shown once. The password is the date of birth written as DDMMYYYY.",
		GeneratedAt: time.Now(),
	}
	out, err := s.pdf.RenderForm(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render credential slip")
	}
	return out, fmt.Sprintf("credentials_%s.pdf", result.LoginID), nil
}

func (s *AdmissionService) resolvePhoto(inquiry *models.AdmissionInquiry) {
	if inquiry.PhotoKey == "" {
		return
	}
	url, err := s.photoURL(inquiry.PhotoKey)
	if err != nil {
		s.logger.Debug("photo url unavailable", zap.String("key", inquiry.PhotoKey), zap.Error(err))
		return
	}
	inquiry.PhotoURL = url
}

func (s *AdmissionService) photoURL(key string) (string, error) {
	if s.files == nil {
		return "", errors.New("file storage not configured")
	}
	return s.files.URL(key)
}

func (s *AdmissionService) recordAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func slug(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return "inquiry"
	}
	return strings.Join(fields, "_")
}
