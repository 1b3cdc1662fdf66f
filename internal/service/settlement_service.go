package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/repository"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type paymentLedger interface {
	Append(ctx context.Context, payment *models.Payment) error
}

type enrollmentWriter interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type reservationRemover interface {
	DeleteByClassAndStudent(ctx context.Context, classID, studentEmail string) (int64, error)
}

type seatLedger interface {
	ClaimSeat(ctx context.Context, classID string) (*models.SeatCounters, error)
}

type instructorLedger interface {
	IncrementTotalStudents(ctx context.Context, email string) (int, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SettlementConfig selects the persistence mode of steps 2-5. Timeout bounds those steps
// once the payment is recorded; zero leaves them unbounded.
type SettlementConfig struct {
	Atomic  bool
	Timeout time.Duration
}

var (
	errInstructorMismatch   = errors.New("instructor does not teach this class")
	errInstructorUnverified = errors.New("class instructor could not be verified")
)

// SettlementDeps groups the stores the workflow writes to.
type SettlementDeps struct {
	Payments     paymentLedger
	Enrollments  enrollmentWriter
	Reservations reservationRemover
	Seats        seatLedger
	Instructors  instructorLedger
	Tx           transactor
}

// SettlementService turns a confirmed payment into an enrollment.
//
// The payment is appended first and always commits on its own. In atomic mode the remaining
// writes share one transaction and either all land or none do. In best-effort mode every
// write is its own statement and the caller receives a partial-failure result when some of
// them failed.
type SettlementService struct {
	deps      SettlementDeps
	config    SettlementConfig
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettlementService constructs the workflow.
func NewSettlementService(deps SettlementDeps, config SettlementConfig, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SettlementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{deps: deps, config: config, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Settle records the payment and applies the enrollment. The returned result is non-nil
// whenever the payment step was attempted, including on error.
func (s *SettlementService) Settle(ctx context.Context, principal *models.Principal, req models.SettlementRequest) (*models.SettlementResult, error) {
	if err := s.authorize(principal, &req); err != nil {
		s.metrics.RecordSettlement(SettlementOutcomeRejected)
		return nil, err
	}

	result := newSettlementResult(s.config.Atomic)
	payment := req.Payment
	if err := s.deps.Payments.Append(ctx, &payment); err != nil {
		result.Payment.Error = err.Error()
		s.metrics.RecordSettlement(SettlementOutcomeRejected)
		s.logger.Error("payment ledger append failed",
			zap.String("student", req.Intent.StudentEmail),
			zap.String("class_id", req.Intent.ClassID),
			zap.Error(err))
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	result.Payment = models.StepResult{Step: models.StepRecordPayment, Applied: true, Affected: 1}
	result.PaymentID = payment.ID

	// The payment is on the ledger; a dropped client must not strand it without an enrollment.
	ctx = context.WithoutCancel(ctx)
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	if s.config.Atomic {
		defer func() { s.metrics.ObserveDBQuery("settlement_atomic", time.Since(start)) }()
		return s.settleAtomic(ctx, req.Intent, payment.ID, result)
	}
	defer func() { s.metrics.ObserveDBQuery("settlement_best_effort", time.Since(start)) }()
	return s.settleBestEffort(ctx, req.Intent, payment.ID, result)
}

func (s *SettlementService) authorize(principal *models.Principal, req *models.SettlementRequest) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	req.Intent.StudentEmail = strings.ToLower(strings.TrimSpace(req.Intent.StudentEmail))
	req.Intent.InstructorEmail = strings.ToLower(strings.TrimSpace(req.Intent.InstructorEmail))
	req.Payment.StudentEmail = strings.ToLower(strings.TrimSpace(req.Payment.StudentEmail))
	if req.Payment.StudentEmail == "" {
		req.Payment.StudentEmail = req.Intent.StudentEmail
	}
	if req.Payment.ClassID == "" {
		req.Payment.ClassID = req.Intent.ClassID
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settlement payload")
	}
	if req.Payment.StudentEmail != req.Intent.StudentEmail || req.Payment.ClassID != req.Intent.ClassID {
		return appErrors.Clone(appErrors.ErrValidation, "payment does not match enrollment")
	}
	if req.Intent.StudentEmail != principal.Email && !principal.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot settle on behalf of another student")
	}
	return nil
}

func (s *SettlementService) settleAtomic(ctx context.Context, intent models.EnrollmentIntent, paymentID string, result *models.SettlementResult) (*models.SettlementResult, error) {
	var (
		staged     *models.SettlementResult
		failedStep models.SettlementStep
	)
	err := s.deps.Tx.WithinTx(ctx, func(txCtx context.Context) error {
		staged = cloneResult(result)
		step, err := s.apply(txCtx, intent, paymentID, staged, true)
		failedStep = step
		return err
	})
	if err == nil {
		s.finish(ctx, intent, staged)
		return staged, nil
	}

	// Nothing of steps 2-5 survived the rollback.
	rolledBack := cloneResult(result)
	for _, step := range []*models.StepResult{&rolledBack.Enrollment, &rolledBack.Reservation, &rolledBack.Seats, &rolledBack.Instructor} {
		if step.Step == failedStep {
			step.Error = err.Error()
		}
	}
	s.metrics.RecordSettlement(SettlementOutcomeRolledBack)
	s.logger.Error("settlement rolled back",
		zap.String("payment_id", paymentID),
		zap.String("student", intent.StudentEmail),
		zap.String("class_id", intent.ClassID),
		zap.String("step", string(failedStep)),
		zap.Error(err))
	return rolledBack, stepError(failedStep, err)
}

func (s *SettlementService) settleBestEffort(ctx context.Context, intent models.EnrollmentIntent, paymentID string, result *models.SettlementResult) (*models.SettlementResult, error) {
	_, err := s.apply(ctx, intent, paymentID, result, false)
	if result.Complete() {
		s.finish(ctx, intent, result)
		return result, nil
	}

	// Seat counters may have moved even though other steps failed.
	if result.Seats.Applied {
		s.cache.InvalidateClassCatalog(ctx)
	}
	s.metrics.RecordSettlement(SettlementOutcomePartial)
	s.logger.Error("settlement partially applied",
		zap.String("payment_id", paymentID),
		zap.String("student", intent.StudentEmail),
		zap.String("class_id", intent.ClassID),
		zap.Any("failed_steps", result.FailedSteps()))
	if failed := result.FailedSteps(); len(failed) == 1 && failed[0] == models.StepClaimSeat && errors.Is(err, repository.ErrSeatsExhausted) {
		return result, stepError(models.StepClaimSeat, err)
	}
	return result, appErrors.Clone(appErrors.ErrPartialSettlement, fmt.Sprintf("payment recorded but settlement incomplete: %v", result.FailedSteps()))
}

// apply runs steps 2-5. With stopOnError it returns at the first failing step; otherwise it
// attempts every step and returns the first failure.
func (s *SettlementService) apply(ctx context.Context, intent models.EnrollmentIntent, paymentID string, result *models.SettlementResult, stopOnError bool) (models.SettlementStep, error) {
	var (
		firstStep models.SettlementStep
		firstErr  error
	)
	fail := func(step *models.StepResult, err error) bool {
		step.Error = err.Error()
		if firstErr == nil {
			firstStep, firstErr = step.Step, err
		}
		return stopOnError
	}

	enrollment := &models.Enrollment{
		StudentEmail:    intent.StudentEmail,
		ClassID:         intent.ClassID,
		InstructorEmail: intent.InstructorEmail,
		PaymentID:       &paymentID,
	}
	if err := s.deps.Enrollments.Create(ctx, enrollment); err != nil {
		if fail(&result.Enrollment, err) {
			return firstStep, firstErr
		}
	} else {
		result.Enrollment.Applied, result.Enrollment.Affected = true, 1
		result.EnrollmentID = enrollment.ID
	}

	deleted, err := s.deps.Reservations.DeleteByClassAndStudent(ctx, intent.ClassID, intent.StudentEmail)
	if err != nil {
		if fail(&result.Reservation, err) {
			return firstStep, firstErr
		}
	} else {
		result.Reservation.Applied, result.Reservation.Affected = true, deleted
		if deleted == 0 {
			result.Reservation.Anomaly = "no matching reservation"
			s.logger.Warn("settled without a matching reservation",
				zap.String("student", intent.StudentEmail),
				zap.String("class_id", intent.ClassID))
		}
	}

	counters, err := s.deps.Seats.ClaimSeat(ctx, intent.ClassID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatsExhausted) {
			s.metrics.RecordSeatConflict()
		}
		if fail(&result.Seats, err) {
			return firstStep, firstErr
		}
	} else {
		result.Seats.Applied, result.Seats.Affected = true, 1
		result.Counters = counters
	}

	// ClaimSeat reports the class owner even when the class is sold out.
	if counters == nil {
		if fail(&result.Instructor, errInstructorUnverified) {
			return firstStep, firstErr
		}
	} else if !strings.EqualFold(counters.InstructorEmail, intent.InstructorEmail) {
		s.logger.Warn("settlement names a different instructor than the class",
			zap.String("class_id", intent.ClassID),
			zap.String("claimed", intent.InstructorEmail),
			zap.String("actual", counters.InstructorEmail))
		if fail(&result.Instructor, errInstructorMismatch) {
			return firstStep, firstErr
		}
	} else if _, err := s.deps.Instructors.IncrementTotalStudents(ctx, intent.InstructorEmail); err != nil {
		if fail(&result.Instructor, err) {
			return firstStep, firstErr
		}
	} else {
		result.Instructor.Applied, result.Instructor.Affected = true, 1
	}

	return firstStep, firstErr
}

func (s *SettlementService) finish(ctx context.Context, intent models.EnrollmentIntent, result *models.SettlementResult) {
	s.cache.InvalidateClassCatalog(ctx)
	s.metrics.RecordSettlement(SettlementOutcomeCompleted)
	fields := []zap.Field{
		zap.String("payment_id", result.PaymentID),
		zap.String("enrollment_id", result.EnrollmentID),
		zap.String("student", intent.StudentEmail),
		zap.String("class_id", intent.ClassID),
	}
	if result.Counters != nil {
		fields = append(fields, zap.Int("available_seats", result.Counters.AvailableSeats))
	}
	s.logger.Info("settlement completed", fields...)
}

func stepError(step models.SettlementStep, err error) error {
	switch {
	case errors.Is(err, errInstructorMismatch):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "instructor does not teach this class")
	case errors.Is(err, repository.ErrSeatsExhausted):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "class is sold out")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student is already enrolled in this class")
	case errors.Is(err, sql.ErrNoRows) && step == models.StepClaimSeat:
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "class not found")
	case errors.Is(err, sql.ErrNoRows) && step == models.StepIncrementInstructor:
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "instructor not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "settlement failed")
}

func newSettlementResult(atomic bool) *models.SettlementResult {
	return &models.SettlementResult{
		Atomic:      atomic,
		Payment:     models.StepResult{Step: models.StepRecordPayment},
		Enrollment:  models.StepResult{Step: models.StepCreateEnrollment},
		Reservation: models.StepResult{Step: models.StepRemoveReservation},
		Seats:       models.StepResult{Step: models.StepClaimSeat},
		Instructor:  models.StepResult{Step: models.StepIncrementInstructor},
	}
}

func cloneResult(r *models.SettlementResult) *models.SettlementResult {
	clone := *r
	if r.Counters != nil {
		counters := *r.Counters
		clone.Counters = &counters
	}
	return &clone
}
