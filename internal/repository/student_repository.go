package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pp-coaching/coaching-api/internal/models"
)

const activeStudentColumns = `id, name, class, contact_number, dob, login_id, original_student_id, created_at`

// StudentRepository manages active student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns active students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.ActiveStudentFilter) ([]models.ActiveStudent, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Class != "" {
		args = append(args, filter.Class)
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(login_id) LIKE $%d OR contact_number LIKE $%d)", len(args), len(args), len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"class":      "class",
		"login_id":   "login_id",
		"created_at": "created_at",
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

	query := fmt.Sprintf("SELECT %s FROM active_students %s ORDER BY %s %s LIMIT %d OFFSET %d", activeStudentColumns, where, column, order, size, offset)
	var students []models.ActiveStudent
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list active students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM active_students "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count active students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every active student ordered by login id, for exports.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.ActiveStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM active_students ORDER BY login_id ASC", activeStudentColumns)
	var students []models.ActiveStudent
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all active students: %w", err)
	}
	return students, nil
}

// FindByID fetches an active student. sql.ErrNoRows is returned unwrapped when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.ActiveStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM active_students WHERE id = $1", activeStudentColumns)
	var student models.ActiveStudent
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCredentials returns the student whose login id (ignoring case) and date of birth match.
// sql.ErrNoRows is returned unwrapped when nothing matches.
func (r *StudentRepository) FindByCredentials(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM active_students WHERE LOWER(login_id) = LOWER($1) AND dob = $2 LIMIT 1", activeStudentColumns)
	var student models.ActiveStudent
	if err := r.db.GetContext(ctx, &student, query, loginID, dob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by credentials: %w", err)
	}
	return &student, nil
}

// ExistsByLoginID reports whether an active student holds loginID, ignoring case.
func (r *StudentRepository) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM active_students WHERE LOWER(login_id) = LOWER($1))`, loginID); err != nil {
		return false, fmt.Errorf("check login id: %w", err)
	}
	return exists, nil
}

// SerialClaim raises a prefix's high-water mark when a student is inserted outside the
// enrollment engine with an issued-shape login id.
type SerialClaim struct {
	Prefix string
	Serial int
}

// Create inserts a student supplied directly by an administrator. A clash on login_id yields
// ErrDuplicateLogin. A non-nil claim is recorded in login_serials in the same transaction so the
// serial is never derived again.
func (r *StudentRepository) Create(ctx context.Context, student *models.ActiveStudent, claim *SerialClaim) (err error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create active student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO active_students (id, name, class, contact_number, dob, login_id, original_student_id, created_at)
        VALUES (:id, :name, :class, :contact_number, :dob, :login_id, :original_student_id, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("create active student: %w", err)
	}
	if claim != nil {
		const claimQuery = `INSERT INTO login_serials (prefix, last_serial, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (prefix) DO UPDATE SET last_serial = GREATEST(login_serials.last_serial, EXCLUDED.last_serial), updated_at = EXCLUDED.updated_at`
		if _, err = tx.ExecContext(ctx, claimQuery, strings.ToUpper(claim.Prefix), claim.Serial, time.Now().UTC()); err != nil {
			return fmt.Errorf("claim login serial: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit active student: %w", err)
	}
	return nil
}
