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

// EnrollmentUnit exposes the writes of one enrollment or unenrollment. Everything done through a
// unit commits or rolls back together.
type EnrollmentUnit interface {
	LockInquiry(ctx context.Context, id string) (*models.AdmissionInquiry, error)
	CountLoginPrefix(ctx context.Context, prefix string) (int, error)
	MaxLoginSerial(ctx context.Context, prefix string) (int, error)
	ReserveSerial(ctx context.Context, prefix string, floor int) (int, error)
	InsertStudent(ctx context.Context, student *models.ActiveStudent) error
	MarkEnrolled(ctx context.Context, inquiryID, loginID string) error
	LockStudent(ctx context.Context, id string) (*models.ActiveStudent, error)
	DeleteStudent(ctx context.Context, id string) error
	ResetInquiry(ctx context.Context, inquiryID string) error
}

// EnrollmentRepository runs enrollment units inside PostgreSQL transactions.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (r *EnrollmentRepository) InTx(ctx context.Context, fn func(EnrollmentUnit) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&enrollmentTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment transaction: %w", err)
	}
	return nil
}

type enrollmentTx struct {
	tx *sqlx.Tx
}

// LockInquiry loads the inquiry and holds a row lock until the transaction ends.
func (u *enrollmentTx) LockInquiry(ctx context.Context, id string) (*models.AdmissionInquiry, error) {
	query := fmt.Sprintf("SELECT %s FROM admission_inquiries WHERE id = $1 FOR UPDATE", admissionColumns)
	var inquiry models.AdmissionInquiry
	if err := u.tx.GetContext(ctx, &inquiry, query, id); err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// CountLoginPrefix counts active students whose login id starts with prefix, ignoring case.
func (u *enrollmentTx) CountLoginPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COUNT(*) FROM active_students WHERE login_id ILIKE $1`
	var count int
	if err := u.tx.GetContext(ctx, &count, query, likePrefix(prefix)); err != nil {
		return 0, fmt.Errorf("count login prefix: %w", err)
	}
	return count, nil
}

// MaxLoginSerial returns the highest numeric suffix among active login ids that start with prefix,
// or zero when there are none. Ids with a non-numeric suffix are ignored.
func (u *enrollmentTx) MaxLoginSerial(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COALESCE(MAX(CAST(SUBSTRING(login_id FROM $2) AS BIGINT)), 0) FROM active_students
WHERE login_id ILIKE $1 AND SUBSTRING(login_id FROM $2) ~ '^[0-9]{1,9}$'`
	var serial int
	if err := u.tx.GetContext(ctx, &serial, query, likePrefix(prefix), len(prefix)+1); err != nil {
		return 0, fmt.Errorf("max login serial: %w", err)
	}
	return serial, nil
}

// ReserveSerial advances the per-prefix high-water mark to at least floor and returns it.
// Serials handed out once are never returned again, even after the student is deleted.
func (u *enrollmentTx) ReserveSerial(ctx context.Context, prefix string, floor int) (int, error) {
	const query = `INSERT INTO login_serials (prefix, last_serial, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (prefix) DO UPDATE SET last_serial = GREATEST(login_serials.last_serial + 1, EXCLUDED.last_serial), updated_at = EXCLUDED.updated_at
RETURNING last_serial`
	var serial int
	if err := u.tx.GetContext(ctx, &serial, query, strings.ToUpper(prefix), floor, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("reserve serial: %w", err)
	}
	return serial, nil
}

// InsertStudent inserts the derived active student. A clash on login_id yields ErrDuplicateLogin.
func (u *enrollmentTx) InsertStudent(ctx context.Context, student *models.ActiveStudent) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO active_students (id, name, class, contact_number, dob, login_id, original_student_id, created_at)
        VALUES (:id, :name, :class, :contact_number, :dob, :login_id, :original_student_id, :created_at)`
	if _, err := u.tx.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLogin
		}
		return fmt.Errorf("insert active student: %w", err)
	}
	return nil
}

// MarkEnrolled flips the inquiry to enrolled and records the login id.
func (u *enrollmentTx) MarkEnrolled(ctx context.Context, inquiryID, loginID string) error {
	const query = `UPDATE admission_inquiries SET status = $2, login_id = $3, updated_at = $4 WHERE id = $1`
	res, err := u.tx.ExecContext(ctx, query, inquiryID, models.AdmissionStatusEnrolled, loginID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark inquiry enrolled: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected != 1 {
		return fmt.Errorf("mark inquiry enrolled: %d rows updated", affected)
	}
	return nil
}

// LockStudent loads the active student and holds a row lock until the transaction ends.
func (u *enrollmentTx) LockStudent(ctx context.Context, id string) (*models.ActiveStudent, error) {
	query := fmt.Sprintf("SELECT %s FROM active_students WHERE id = $1 FOR UPDATE", activeStudentColumns)
	var student models.ActiveStudent
	if err := u.tx.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// DeleteStudent removes an active student row.
func (u *enrollmentTx) DeleteStudent(ctx context.Context, id string) error {
	if _, err := u.tx.ExecContext(ctx, `DELETE FROM active_students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete active student: %w", err)
	}
	return nil
}

// ResetInquiry returns an inquiry to pending and clears its login id. A purged inquiry is ignored.
func (u *enrollmentTx) ResetInquiry(ctx context.Context, inquiryID string) error {
	const query = `UPDATE admission_inquiries SET status = $2, login_id = NULL, updated_at = $3 WHERE id = $1`
	if _, err := u.tx.ExecContext(ctx, query, inquiryID, models.AdmissionStatusPending, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset inquiry: %w", err)
	}
	return nil
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}
