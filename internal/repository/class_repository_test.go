package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/summercamp-api/internal/models"
)

var classRowColumns = []string{"id", "name", "image_url", "instructor_name", "instructor_email", "price", "available_seats", "total_enrolled", "status", "feedback", "created_at", "updated_at"}

func TestClaimSeatDecrementsAndIncrements(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND available_seats > 0 RETURNING available_seats, total_enrolled, instructor_email")).
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats", "total_enrolled", "instructor_email"}).AddRow(4, 3, "ines@example.com"))

	counters, err := repo.ClaimSeat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 4, counters.AvailableSeats)
	assert.Equal(t, 3, counters.TotalEnrolled)
	assert.Equal(t, "ines@example.com", counters.InstructorEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimSeatExhausted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("available_seats > 0")).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats", "total_enrolled", "instructor_email"}))
	mock.ExpectQuery(regexp.QuoteMeta("instructor_email FROM classes WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats", "total_enrolled", "instructor_email"}).AddRow(0, 5, "ines@example.com"))

	counters, err := repo.ClaimSeat(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrSeatsExhausted)
	require.NotNil(t, counters)
	assert.Equal(t, "ines@example.com", counters.InstructorEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimSeatMissingClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("available_seats > 0")).
		WillReturnRows(sqlmock.NewRows([]string{"available_seats", "total_enrolled", "instructor_email"}))
	mock.ExpectQuery(regexp.QuoteMeta("instructor_email FROM classes WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats", "total_enrolled", "instructor_email"}))

	_, err := repo.ClaimSeat(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionStatusOnlyFromExpectedStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("c1", models.ClassStatusPending, models.ClassStatusApproved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.TransitionStatus(context.Background(), "c1", models.ClassStatusPending, models.ClassStatusApproved)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApprovedClasses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE status = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.ClassStatusApproved).
		WillReturnRows(sqlmock.NewRows(classRowColumns).
			AddRow("c1", "Pottery", "", "Ines", "ines@example.com", 40.0, 5, 2, "approved", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE status = $1")).
		WithArgs(models.ClassStatusApproved).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{Status: models.ClassStatusApproved})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Nil(t, classes[0].Feedback)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOwnedScopesByInstructor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET name = .* instructor_name = .* WHERE id = .* AND instructor_email = ").
		WithArgs("Clay", sqlmock.AnyArg(), "Ines Park", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "c1", "ines@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateOwned(context.Background(), &models.Class{ID: "c1", InstructorEmail: "ines@example.com", InstructorName: "Ines Park", Name: "Clay"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
