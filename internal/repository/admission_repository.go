package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pp-coaching/coaching-api/internal/models"
)

const admissionColumns = `id, student_name, father_name, mother_name, dob, gender, contact_number, parent_contact_number, email, address, class, school_name, board, interested_subjects, studied_with_us, session, referral_source, additional_notes, photo_key, photo_url, status, login_id, created_at, updated_at`

// AdmissionRepository manages admission inquiries.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs an AdmissionRepository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

// List returns inquiries matching the filter with the total count.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Class != "" {
		args = append(args, filter.Class)
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(student_name) LIKE $%d OR contact_number LIKE $%d OR LOWER(COALESCE(login_id, '')) LIKE $%d)", len(args), len(args), len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at":   "created_at",
		"student_name": "student_name",
		"class":        "class",
		"status":       "status",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM admission_inquiries %s ORDER BY %s %s LIMIT %d OFFSET %d", admissionColumns, where, column, order, size, offset)
	var items []models.AdmissionInquiry
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM admission_inquiries "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	return items, total, nil
}

// ListPending returns every inquiry that is not yet enrolled, oldest first.
func (r *AdmissionRepository) ListPending(ctx context.Context) ([]models.AdmissionInquiry, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_inquiries WHERE status <> $1 ORDER BY created_at ASC", admissionColumns)
	var items []models.AdmissionInquiry
	if err := r.db.SelectContext(ctx, &items, query, models.AdmissionStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list pending admissions: %w", err)
	}
	return items, nil
}

// FindByID fetches an inquiry. sql.ErrNoRows is returned unwrapped when absent.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.AdmissionInquiry, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_inquiries WHERE id = $1", admissionColumns)
	var inquiry models.AdmissionInquiry
	if err := r.db.GetContext(ctx, &inquiry, query, id); err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// Create inserts a new pending inquiry.
func (r *AdmissionRepository) Create(ctx context.Context, inquiry *models.AdmissionInquiry) error {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = now
	}
	inquiry.UpdatedAt = now
	if inquiry.Status == "" {
		inquiry.Status = models.AdmissionStatusPending
	}
	query := fmt.Sprintf(`INSERT INTO admission_inquiries (%s)
        VALUES (:id, :student_name, :father_name, :mother_name, :dob, :gender, :contact_number, :parent_contact_number, :email, :address, :class, :school_name, :board, :interested_subjects, :studied_with_us, :session, :referral_source, :additional_notes, :photo_key, :photo_url, :status, :login_id, :created_at, :updated_at)`, admissionColumns)
	if _, err := r.db.NamedExecContext(ctx, query, inquiry); err != nil {
		return fmt.Errorf("create admission: %w", err)
	}
	return nil
}

// Update rewrites the editable fields of an inquiry, including status and login id. The write only
// applies while the stored status still equals expected; otherwise ErrStaleAdmission is returned,
// so an edit based on a stale read never undoes an enrollment.
func (r *AdmissionRepository) Update(ctx context.Context, inquiry *models.AdmissionInquiry, expected models.AdmissionStatus) error {
	inquiry.UpdatedAt = time.Now().UTC()
	args := struct {
		models.AdmissionInquiry
		ExpectedStatus models.AdmissionStatus `db:"expected_status"`
	}{AdmissionInquiry: *inquiry, ExpectedStatus: expected}
	const query = `UPDATE admission_inquiries SET student_name = :student_name, father_name = :father_name, mother_name = :mother_name, dob = :dob, gender = :gender,
        contact_number = :contact_number, parent_contact_number = :parent_contact_number, email = :email, address = :address, class = :class, school_name = :school_name,
        board = :board, interested_subjects = :interested_subjects, studied_with_us = :studied_with_us, session = :session, referral_source = :referral_source,
        additional_notes = :additional_notes, photo_key = :photo_key, photo_url = :photo_url, status = :status, login_id = :login_id, updated_at = :updated_at
        WHERE id = :id AND status = :expected_status`
	res, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("update admission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admission: %w", err)
	}
	if affected == 0 {
		return ErrStaleAdmission
	}
	return nil
}

// Delete purges an inquiry. Linked active students keep their dangling back-reference.
func (r *AdmissionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admission_inquiries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete admission: %w", err)
	}
	return nil
}
