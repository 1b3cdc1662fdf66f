package models

// EnrollmentIntent names who is enrolling in which class and whose counter moves.
type EnrollmentIntent struct {
	StudentEmail    string `json:"student_email" validate:"required,email"`
	ClassID         string `json:"class_id" validate:"required"`
	InstructorEmail string `json:"instructor_email" validate:"required,email"`
}

// SettlementRequest is submitted after the payment processor confirmed the charge.
type SettlementRequest struct {
	Payment Payment          `json:"payment"`
	Intent  EnrollmentIntent `json:"enrollment"`
}

// SettlementStep identifies one write of the settlement workflow.
type SettlementStep string

const (
	StepRecordPayment       SettlementStep = "record_payment"
	StepCreateEnrollment    SettlementStep = "create_enrollment"
	StepRemoveReservation   SettlementStep = "remove_reservation"
	StepClaimSeat           SettlementStep = "claim_seat"
	StepIncrementInstructor SettlementStep = "increment_instructor_students"
)

// StepResult reports the outcome of a single settlement write.
type StepResult struct {
	Step     SettlementStep `json:"step"`
	Applied  bool           `json:"applied"`
	Affected int64          `json:"affected"`
	Anomaly  string         `json:"anomaly,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// SettlementResult is the composite outcome of a settlement.
type SettlementResult struct {
	Atomic       bool          `json:"atomic"`
	Payment      StepResult    `json:"payment"`
	Enrollment   StepResult    `json:"enrollment"`
	Reservation  StepResult    `json:"reservation"`
	Seats        StepResult    `json:"seats"`
	Instructor   StepResult    `json:"instructor"`
	PaymentID    string        `json:"payment_id,omitempty"`
	EnrollmentID string        `json:"enrollment_id,omitempty"`
	Counters     *SeatCounters `json:"counters,omitempty"`
}

// Steps lists the per-step results in workflow order.
func (r *SettlementResult) Steps() []StepResult {
	return []StepResult{r.Payment, r.Enrollment, r.Reservation, r.Seats, r.Instructor}
}

// Complete reports whether every step was applied.
func (r *SettlementResult) Complete() bool {
	for _, step := range r.Steps() {
		if !step.Applied {
			return false
		}
	}
	return true
}

// FailedSteps returns the steps that did not apply.
func (r *SettlementResult) FailedSteps() []SettlementStep {
	var failed []SettlementStep
	for _, step := range r.Steps() {
		if !step.Applied {
			failed = append(failed, step.Step)
		}
	}
	return failed
}
