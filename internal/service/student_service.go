package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/repository"
	"github.com/pp-coaching/coaching-api/internal/session"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/export"
)

// Student sign-in outcomes recorded by MetricsService.
const (
	StudentLoginMatched = "matched"
	StudentLoginNoMatch = "no_match"
	StudentLoginError   = "error"
)

type activeStudentRepository interface {
	List(ctx context.Context, filter models.ActiveStudentFilter) ([]models.ActiveStudent, int, error)
	ListAll(ctx context.Context) ([]models.ActiveStudent, error)
	FindByID(ctx context.Context, id string) (*models.ActiveStudent, error)
	FindByCredentials(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error)
	Create(ctx context.Context, student *models.ActiveStudent, claim *repository.SerialClaim) error
}

// StudentService serves the active student roster and verifies portal credentials.
type StudentService struct {
	repo      activeStudentRepository
	audit     auditRecorder
	exporter  *export.CSVExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo activeStudentRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, audit: audit, exporter: export.NewCSVExporter(), metrics: metrics, validator: validate, logger: logger}
}

// List returns active students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.ActiveStudentFilter) ([]models.ActiveStudent, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single active student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.ActiveStudent, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load student")
	}
	return student, nil
}

// Create inserts a student with an operator-chosen login id. The id shares the uniqueness
// constraint with issued logins, and an id shaped like an issued one also claims its serial.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest, meta AuditMeta) (*models.ActiveStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.ActiveStudent{
		Name:          strings.TrimSpace(req.Name),
		Class:         strings.TrimSpace(req.Class),
		ContactNumber: req.ContactNumber,
		DOB:           req.DOB,
		LoginID:       strings.ToUpper(req.LoginID),
	}
	var claim *repository.SerialClaim
	if prefix, serial, ok := credential.SplitLoginID(student.LoginID); ok {
		claim = &repository.SerialClaim{Prefix: prefix, Serial: serial}
	}
	if err := s.repo.Create(ctx, student, claim); err != nil {
		if errors.Is(err, repository.ErrDuplicateLogin) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "login id already in use")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("login_id", student.LoginID))
	if s.audit != nil {
		entry := meta.entry(models.AuditActionStudentCreate, "student", student.ID, map[string]interface{}{"login_id": student.LoginID})
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
		}
	}
	return student, nil
}

// ExportCSV renders the full roster as a spreadsheet-friendly CSV.
func (s *StudentService) ExportCSV(ctx context.Context) ([]byte, error) {
	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load students")
	}
	data := export.Dataset{Headers: []string{"Login ID", "Name", "Class", "Contact Number", "Date of Birth", "Enrolled At"}}
	for _, st := range students {
		data.AddRow(st.LoginID, st.Name, st.Class, st.ContactNumber, st.DOB, st.CreatedAt.Format("2006-01-02"))
	}
	out, err := s.exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render students csv")
	}
	return out, nil
}

// VerifyStudent implements session.StudentVerifier. The login id is matched ignoring case; dob
// must be ISO formatted.
func (s *StudentService) VerifyStudent(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	loginID = strings.ToUpper(strings.TrimSpace(loginID))
	if loginID == "" || dob == "" {
		s.metrics.RecordStudentLogin(StudentLoginNoMatch)
		return nil, session.ErrNoMatch
	}
	student, err := s.repo.FindByCredentials(ctx, loginID, dob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordStudentLogin(StudentLoginNoMatch)
			return nil, session.ErrNoMatch
		}
		s.metrics.RecordStudentLogin(StudentLoginError)
		return nil, err
	}
	s.metrics.RecordStudentLogin(StudentLoginMatched)
	return student, nil
}
