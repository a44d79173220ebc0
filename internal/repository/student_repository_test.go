package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/models"
)

var activeStudentCols = []string{"id", "name", "class", "contact_number", "dob", "login_id", "original_student_id", "created_at"}

func TestStudentRepositoryFindByCredentialsIgnoresLoginCase(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM active_students WHERE LOWER(login_id) = LOWER($1) AND dob = $2 LIMIT 1")).
		WithArgs("pp2509101", "2011-07-21").
		WillReturnRows(sqlmock.NewRows(activeStudentCols).AddRow("stu-1", "Asha Singh", "Class 9", "9876543210", "2011-07-21", "PP2509101", nil, time.Now()))

	student, err := repo.FindByCredentials(context.Background(), "pp2509101", "2011-07-21")
	require.NoError(t, err)
	assert.Equal(t, "Asha Singh", student.Name)
	assert.Nil(t, student.OriginalStudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByCredentialsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM active_students").WillReturnRows(sqlmock.NewRows(activeStudentCols))

	_, err := repo.FindByCredentials(context.Background(), "PP2509101", "2011-07-22")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM active_students WHERE 1=1 AND (LOWER(name) LIKE $1 OR LOWER(login_id) LIKE $1 OR contact_number LIKE $1) ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%asha%").
		WillReturnRows(sqlmock.NewRows(activeStudentCols).AddRow("stu-1", "Asha Singh", "Class 9", "", "2011-07-21", "PP2509101", "inq-1", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM active_students WHERE 1=1")).
		WithArgs("%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.ActiveStudentFilter{Search: "Asha", SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, students, 1)
	assert.Equal(t, "inq-1", *students[0].OriginalStudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateLogin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO active_students").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.ActiveStudent{Name: "Ravi", LoginID: "PP2509101", DOB: "2011-01-01"}, &SerialClaim{Prefix: "PP2509", Serial: 101})
	assert.True(t, errors.Is(err, ErrDuplicateLogin))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateClaimsSerial(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO active_students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(login_serials.last_serial, EXCLUDED.last_serial)")).
		WithArgs("PP2509", 103, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.ActiveStudent{Name: "Ravi", LoginID: "PP2509103", DOB: "2011-01-01"}
	require.NoError(t, repo.Create(context.Background(), student, &SerialClaim{Prefix: "pp2509", Serial: 103}))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateWithoutClaim(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO active_students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), &models.ActiveStudent{Name: "Ravi", LoginID: "RAVI2011", DOB: "2011-01-01"}, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByLoginID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM active_students WHERE LOWER(login_id) = LOWER($1))")).
		WithArgs("pp2509101").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByLoginID(context.Background(), "pp2509101")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
