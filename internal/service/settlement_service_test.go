package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

const (
	testClassID    = "class-1"
	testInstructor = "ines@example.com"
)

func seedCamp(t *testing.T, seats, enrolled int) *memoryDB {
	t.Helper()
	db := newMemoryDB()
	db.addClass(models.Class{
		ID:              testClassID,
		Name:            "Pottery",
		InstructorEmail: testInstructor,
		Price:           40,
		AvailableSeats:  seats,
		TotalEnrolled:   enrolled,
		Status:          models.ClassStatusApproved,
	})
	db.addUser(models.User{ID: "u-ines", Email: testInstructor, Role: models.RoleInstructor})
	return db
}

func settlementFor(student string) models.SettlementRequest {
	return models.SettlementRequest{
		Payment: models.Payment{
			StudentEmail:  student,
			ClassID:       testClassID,
			ClassName:     "Pottery",
			Amount:        40,
			TransactionID: "pi_" + student,
		},
		Intent: models.EnrollmentIntent{
			StudentEmail:    student,
			ClassID:         testClassID,
			InstructorEmail: testInstructor,
		},
	}
}

func student(email string) *models.Principal {
	return &models.Principal{Email: email, Role: models.RoleStudent, Known: true}
}

func newSettlement(db *memoryDB, atomic bool) *SettlementService {
	return NewSettlementService(settlementDeps(db), SettlementConfig{Atomic: atomic}, nil, NewMetricsService(), nil, zap.NewNop())
}

func TestSettleRoundTripMovesCounters(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			db := seedCamp(t, 5, 2)
			reservations := memReservations{db}
			require.NoError(t, reservations.Create(context.Background(), &models.Reservation{StudentEmail: "sam@example.com", ClassID: testClassID}))

			result, err := newSettlement(db, atomic).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
			require.NoError(t, err)
			assert.True(t, result.Complete())
			assert.Equal(t, atomic, result.Atomic)
			assert.NotEmpty(t, result.PaymentID)
			assert.NotEmpty(t, result.EnrollmentID)
			require.NotNil(t, result.Counters)
			assert.Equal(t, models.SeatCounters{AvailableSeats: 4, TotalEnrolled: 3, InstructorEmail: testInstructor}, *result.Counters)

			class := db.class(testClassID)
			assert.Equal(t, 4, class.AvailableSeats)
			assert.Equal(t, 3, class.TotalEnrolled)
			assert.Equal(t, 1, db.countEnrollments(testClassID))
			assert.Zero(t, db.countReservations("sam@example.com", testClassID))
			assert.Equal(t, 1, db.user(testInstructor).TotalStudents)
		})
	}
}

func TestSettleWithoutReservationIsSoftAnomaly(t *testing.T) {
	db := seedCamp(t, 3, 0)

	result, err := newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
	require.NoError(t, err)
	assert.True(t, result.Reservation.Applied)
	assert.Zero(t, result.Reservation.Affected)
	assert.NotEmpty(t, result.Reservation.Anomaly)
	assert.Equal(t, 2, db.class(testClassID).AvailableSeats)
}

func TestSettleConcurrentLastSeat(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			db := seedCamp(t, 1, 0)
			svc := newSettlement(db, atomic)

			const attempts = 12
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				conflicts int
			)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					email := fmt.Sprintf("s%d@example.com", i)
					result, err := svc.Settle(context.Background(), student(email), settlementFor(email))

					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						succeeded++
						return
					}
					if assert.NotNil(t, result) {
						assert.True(t, result.Payment.Applied)
						assert.False(t, result.Seats.Applied)
					}
					assert.True(t, appErrors.Is(err, appErrors.ErrConflict), "unexpected error %v", err)
					conflicts++
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, succeeded)
			assert.Equal(t, attempts-1, conflicts)
			class := db.class(testClassID)
			assert.Zero(t, class.AvailableSeats)
			assert.Equal(t, 1, class.TotalEnrolled)
			assert.Len(t, db.payments, attempts)
			if atomic {
				assert.Equal(t, 1, db.countEnrollments(testClassID))
				assert.Equal(t, 1, db.user(testInstructor).TotalStudents)
			}
		})
	}
}

func TestSettleAtomicRollsBackOnSoldOut(t *testing.T) {
	db := seedCamp(t, 0, 7)
	require.NoError(t, memReservations{db}.Create(context.Background(), &models.Reservation{StudentEmail: "sam@example.com", ClassID: testClassID}))

	result, err := newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	require.NotNil(t, result)
	assert.True(t, result.Payment.Applied)
	for _, step := range []models.StepResult{result.Enrollment, result.Reservation, result.Seats, result.Instructor} {
		assert.False(t, step.Applied, string(step.Step))
	}
	assert.NotEmpty(t, result.Seats.Error)
	assert.Empty(t, result.Enrollment.Error)

	assert.Len(t, db.payments, 1)
	assert.Zero(t, db.countEnrollments(testClassID))
	assert.Equal(t, 1, db.countReservations("sam@example.com", testClassID))
	assert.Zero(t, db.user(testInstructor).TotalStudents)
}

func TestSettleAtomicMissingInstructorIsNotFound(t *testing.T) {
	db := seedCamp(t, 2, 0)
	db.classes[testClassID].InstructorEmail = "ghost@example.com"
	req := settlementFor("sam@example.com")
	req.Intent.InstructorEmail = "ghost@example.com"

	result, err := newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, models.StepIncrementInstructor, result.Instructor.Step)
	assert.NotEmpty(t, result.Instructor.Error)
	assert.Equal(t, 2, db.class(testClassID).AvailableSeats)
}

func TestSettleRejectsInstructorOfAnotherClass(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			db := seedCamp(t, 2, 0)
			db.addUser(models.User{ID: "u-mallory", Email: "mallory@example.com", Role: models.RoleInstructor})
			req := settlementFor("sam@example.com")
			req.Intent.InstructorEmail = "Mallory@Example.com"

			result, err := newSettlement(db, atomic).Settle(context.Background(), student("sam@example.com"), req)
			require.Error(t, err)
			require.NotNil(t, result)
			assert.True(t, result.Payment.Applied)
			assert.False(t, result.Instructor.Applied)
			assert.NotEmpty(t, result.Instructor.Error)
			assert.Zero(t, db.user("mallory@example.com").TotalStudents)
			assert.Zero(t, db.user(testInstructor).TotalStudents)

			if atomic {
				assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "unexpected error %v", err)
				assert.False(t, result.Seats.Applied)
				assert.Zero(t, db.countEnrollments(testClassID))
				assert.Equal(t, 2, db.class(testClassID).AvailableSeats)
			} else {
				assert.True(t, appErrors.Is(err, appErrors.ErrPartialSettlement), "unexpected error %v", err)
				assert.Equal(t, []models.SettlementStep{models.StepIncrementInstructor}, result.FailedSteps())
			}
		})
	}
}

func TestSettleSurvivesCancellationAfterPayment(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			db := seedCamp(t, 2, 0)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			deps := settlementDeps(db)
			deps.Payments = cancellingPayments{memPayments: memPayments{db}, cancel: cancel}
			svc := NewSettlementService(deps, SettlementConfig{Atomic: atomic, Timeout: time.Minute}, nil, nil, nil, zap.NewNop())

			result, err := svc.Settle(ctx, student("sam@example.com"), settlementFor("sam@example.com"))
			require.NoError(t, err)
			assert.ErrorIs(t, ctx.Err(), context.Canceled)
			assert.True(t, result.Complete())
			assert.Len(t, db.payments, 1)
			assert.Equal(t, 1, db.countEnrollments(testClassID))
			assert.Equal(t, 1, db.class(testClassID).AvailableSeats)
			assert.Equal(t, 1, db.user(testInstructor).TotalStudents)
		})
	}
}

func TestSettleBestEffortLastSeatIsConflict(t *testing.T) {
	db := seedCamp(t, 0, 4)

	result, err := newSettlement(db, false).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict), "unexpected error %v", err)
	assert.Equal(t, []models.SettlementStep{models.StepClaimSeat}, result.FailedSteps())
	assert.Nil(t, result.Counters)
	assert.Zero(t, db.class(testClassID).AvailableSeats)
}

func TestSettleBestEffortReportsPartialFailure(t *testing.T) {
	db := seedCamp(t, 2, 0)
	db.enrollmentErr = errors.New("enrollment store unavailable")

	result, err := newSettlement(db, false).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPartialSettlement))
	assert.Equal(t, []models.SettlementStep{models.StepCreateEnrollment}, result.FailedSteps())
	assert.True(t, result.Seats.Applied)
	assert.True(t, result.Instructor.Applied)
	assert.Equal(t, 1, db.class(testClassID).AvailableSeats)
}

func TestSettleAbortsWhenPaymentFails(t *testing.T) {
	db := seedCamp(t, 2, 0)
	db.paymentErr = errors.New("ledger down")

	result, err := newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), settlementFor("sam@example.com"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.False(t, result.Payment.Applied)
	assert.False(t, result.Enrollment.Applied)
	assert.Equal(t, 2, db.class(testClassID).AvailableSeats)
	assert.Zero(t, db.countEnrollments(testClassID))
}

func TestSettleRejectsOtherStudentUnlessAdmin(t *testing.T) {
	db := seedCamp(t, 2, 0)
	svc := newSettlement(db, true)

	_, err := svc.Settle(context.Background(), student("mallory@example.com"), settlementFor("sam@example.com"))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, db.payments)

	admin := &models.Principal{Email: "root@example.com", Role: models.RoleAdmin, Known: true}
	_, err = svc.Settle(context.Background(), admin, settlementFor("sam@example.com"))
	assert.NoError(t, err)
}

func TestSettleValidatesPayload(t *testing.T) {
	db := seedCamp(t, 2, 0)
	req := settlementFor("sam@example.com")
	req.Payment.TransactionID = ""

	_, err := newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	req = settlementFor("sam@example.com")
	req.Payment.ClassID = "other-class"
	_, err = newSettlement(db, true).Settle(context.Background(), student("sam@example.com"), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSelectThenSettleScenario(t *testing.T) {
	db := seedCamp(t, 3, 0)
	ctx := context.Background()
	sam := student("sam@example.com")
	reservations := NewReservationService(memReservations{db}, memClasses{db}, nil, zap.NewNop())
	enrollments := NewEnrollmentService(memEnrollments{db})

	_, err := reservations.Select(ctx, sam, models.ReservationRequest{ClassID: testClassID})
	require.NoError(t, err)
	selected, err := reservations.ListByStudent(ctx, sam.Email)
	require.NoError(t, err)
	require.Len(t, selected, 1)

	_, err = newSettlement(db, true).Settle(ctx, sam, settlementFor(sam.Email))
	require.NoError(t, err)

	enrolled, err := enrollments.ListByStudent(ctx, sam.Email)
	require.NoError(t, err)
	assert.Len(t, enrolled, 1)
	selected, err = reservations.ListByStudent(ctx, sam.Email)
	require.NoError(t, err)
	assert.Empty(t, selected)
	assert.Equal(t, 2, db.class(testClassID).AvailableSeats)
	assert.Equal(t, 1, db.user(testInstructor).TotalStudents)
}
