package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/repository"
)

// memoryDB is an in-memory stand-in for the Postgres schema. Seat and counter updates
// are conditional under a single mutex, mirroring the single-statement updates.
type memoryDB struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	classes      map[string]*models.Class
	users        map[string]*models.User
	reservations map[string]models.Reservation
	enrollments  []models.Enrollment
	payments     []models.Payment

	paymentErr    error
	enrollmentErr error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		classes:      map[string]*models.Class{},
		users:        map[string]*models.User{},
		reservations: map[string]models.Reservation{},
	}
}

func (db *memoryDB) addClass(c models.Class) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.classes[c.ID] = &c
}

func (db *memoryDB) addUser(u models.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.Email] = &u
}

func (db *memoryDB) class(id string) models.Class {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.classes[id]
}

func (db *memoryDB) user(email string) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return *db.users[email]
}

func (db *memoryDB) countEnrollments(classID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, e := range db.enrollments {
		if e.ClassID == classID {
			n++
		}
	}
	return n
}

func (db *memoryDB) countReservations(studentEmail, classID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, r := range db.reservations {
		if r.StudentEmail == studentEmail && r.ClassID == classID {
			n++
		}
	}
	return n
}

type memorySnapshot struct {
	classes      map[string]models.Class
	users        map[string]models.User
	reservations map[string]models.Reservation
	enrollments  []models.Enrollment
}

func (db *memoryDB) snapshot() memorySnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	snap := memorySnapshot{
		classes:      map[string]models.Class{},
		users:        map[string]models.User{},
		reservations: map[string]models.Reservation{},
		enrollments:  append([]models.Enrollment(nil), db.enrollments...),
	}
	for k, v := range db.classes {
		snap.classes[k] = *v
	}
	for k, v := range db.users {
		snap.users[k] = *v
	}
	for k, v := range db.reservations {
		snap.reservations[k] = v
	}
	return snap
}

func (db *memoryDB) restore(snap memorySnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.classes = map[string]*models.Class{}
	for k, v := range snap.classes {
		v := v
		db.classes[k] = &v
	}
	db.users = map[string]*models.User{}
	for k, v := range snap.users {
		v := v
		db.users[k] = &v
	}
	db.reservations = snap.reservations
	db.enrollments = snap.enrollments
}

// memTx serialises transactions and restores the pre-transaction state on error. The
// payment ledger is outside its scope, like the standalone payment insert.
type memTx struct{ db *memoryDB }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()
	snap := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memPayments struct{ db *memoryDB }

func (m memPayments) Append(ctx context.Context, payment *models.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.paymentErr != nil {
		return m.db.paymentErr
	}
	payment.ID = uuid.NewString()
	payment.CreatedAt = time.Now().UTC()
	m.db.payments = append(m.db.payments, *payment)
	return nil
}

func (m memPayments) ListByStudent(ctx context.Context, studentEmail string) ([]models.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.Payment
	for i := len(m.db.payments) - 1; i >= 0; i-- {
		if m.db.payments[i].StudentEmail == studentEmail {
			out = append(out, m.db.payments[i])
		}
	}
	return out, nil
}

// cancellingPayments cancels the request context right after the payment lands, the way a
// client disconnect would.
type cancellingPayments struct {
	memPayments
	cancel context.CancelFunc
}

func (m cancellingPayments) Append(ctx context.Context, payment *models.Payment) error {
	err := m.memPayments.Append(ctx, payment)
	m.cancel()
	return err
}

type memEnrollments struct{ db *memoryDB }

func (m memEnrollments) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.enrollmentErr != nil {
		return m.db.enrollmentErr
	}
	for _, e := range m.db.enrollments {
		if e.StudentEmail == enrollment.StudentEmail && e.ClassID == enrollment.ClassID {
			return repository.ErrDuplicate
		}
	}
	enrollment.ID = uuid.NewString()
	enrollment.EnrolledAt = time.Now().UTC()
	m.db.enrollments = append(m.db.enrollments, *enrollment)
	return nil
}

func (m memEnrollments) ListByStudent(ctx context.Context, studentEmail string) ([]models.EnrollmentDetail, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range m.db.enrollments {
		if e.StudentEmail == studentEmail {
			detail := models.EnrollmentDetail{Enrollment: e}
			if c, ok := m.db.classes[e.ClassID]; ok {
				detail.ClassName = c.Name
			}
			out = append(out, detail)
		}
	}
	return out, nil
}

type memReservations struct{ db *memoryDB }

func (m memReservations) Exists(ctx context.Context, studentEmail, classID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.reservations {
		if r.StudentEmail == studentEmail && r.ClassID == classID {
			return true, nil
		}
	}
	for _, e := range m.db.enrollments {
		if e.StudentEmail == studentEmail && e.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (m memReservations) Create(ctx context.Context, reservation *models.Reservation) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, r := range m.db.reservations {
		if r.StudentEmail == reservation.StudentEmail && r.ClassID == reservation.ClassID {
			return repository.ErrDuplicate
		}
	}
	reservation.ID = uuid.NewString()
	reservation.CreatedAt = time.Now().UTC()
	m.db.reservations[reservation.ID] = *reservation
	return nil
}

func (m memReservations) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.reservations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (m memReservations) DeleteOwned(ctx context.Context, id, studentEmail string) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.reservations[id]
	if !ok || r.StudentEmail != studentEmail {
		return 0, nil
	}
	delete(m.db.reservations, id)
	return 1, nil
}

func (m memReservations) DeleteByClassAndStudent(ctx context.Context, classID, studentEmail string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, r := range m.db.reservations {
		if r.ClassID == classID && r.StudentEmail == studentEmail {
			delete(m.db.reservations, id)
			n++
		}
	}
	return n, nil
}

func (m memReservations) ListByStudent(ctx context.Context, studentEmail string) ([]models.ReservationDetail, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.ReservationDetail
	for _, r := range m.db.reservations {
		if r.StudentEmail == studentEmail {
			out = append(out, models.ReservationDetail{Reservation: r})
		}
	}
	return out, nil
}

type memClasses struct{ db *memoryDB }

func (m memClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *c
	return &copy, nil
}

func (m memClasses) ClaimSeat(ctx context.Context, id string) (*models.SeatCounters, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if c.AvailableSeats <= 0 {
		return &models.SeatCounters{AvailableSeats: c.AvailableSeats, TotalEnrolled: c.TotalEnrolled, InstructorEmail: c.InstructorEmail}, repository.ErrSeatsExhausted
	}
	c.AvailableSeats--
	c.TotalEnrolled++
	return &models.SeatCounters{AvailableSeats: c.AvailableSeats, TotalEnrolled: c.TotalEnrolled, InstructorEmail: c.InstructorEmail}, nil
}

type memUsers struct{ db *memoryDB }

func (m memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (m memUsers) IncrementTotalStudents(ctx context.Context, email string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[email]
	if !ok {
		return 0, sql.ErrNoRows
	}
	u.TotalStudents++
	return u.TotalStudents, nil
}

func settlementDeps(db *memoryDB) SettlementDeps {
	return SettlementDeps{
		Payments:     memPayments{db},
		Enrollments:  memEnrollments{db},
		Reservations: memReservations{db},
		Seats:        memClasses{db},
		Instructors:  memUsers{db},
		Tx:           memTx{db},
	}
}
