package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/summercamp-api/internal/middleware"
	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/service"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

func newTestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextPrincipalKey, &models.Principal{Email: "sam@example.com", Role: models.RoleStudent, Known: true})
	return c, w
}

type settlementServiceMock struct {
	result *models.SettlementResult
	err    error
	got    models.SettlementRequest
}

func (m *settlementServiceMock) Settle(ctx context.Context, principal *models.Principal, req models.SettlementRequest) (*models.SettlementResult, error) {
	m.got = req
	return m.result, m.err
}

const settlementPayload = `{"payment":{"amount":40,"transaction_id":"pi_1"},"enrollment":{"student_email":"sam@example.com","class_id":"class-1","instructor_email":"ines@example.com"}}`

func TestSettlementHandlerCreated(t *testing.T) {
	svc := &settlementServiceMock{result: &models.SettlementResult{Atomic: true, PaymentID: "p1", EnrollmentID: "e1"}}
	c, w := newTestContext(http.MethodPost, "/settlements", []byte(settlementPayload))

	NewSettlementHandler(svc).Settle(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "class-1", svc.got.Intent.ClassID)
	assert.Contains(t, w.Body.String(), `"enrollment_id":"e1"`)
}

func TestSettlementHandlerPartialFailureCarriesResult(t *testing.T) {
	result := &models.SettlementResult{
		Payment:    models.StepResult{Step: models.StepRecordPayment, Applied: true, Affected: 1},
		Enrollment: models.StepResult{Step: models.StepCreateEnrollment, Error: "boom"},
	}
	svc := &settlementServiceMock{result: result, err: appErrors.Clone(appErrors.ErrPartialSettlement, "incomplete")}
	c, w := newTestContext(http.MethodPost, "/settlements", []byte(settlementPayload))

	NewSettlementHandler(svc).Settle(c)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body struct {
		Error *appErrors.Error                   `json:"error"`
		Meta  map[string]models.SettlementResult `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "PARTIAL_SETTLEMENT_FAILURE", body.Error.Code)
	assert.True(t, body.Meta["settlement"].Payment.Applied)
	assert.Equal(t, "boom", body.Meta["settlement"].Enrollment.Error)
}

func TestSettlementHandlerRejectionHasNoMeta(t *testing.T) {
	svc := &settlementServiceMock{err: appErrors.ErrForbidden}
	c, w := newTestContext(http.MethodPost, "/settlements", []byte(settlementPayload))

	NewSettlementHandler(svc).Settle(c)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), `"meta"`)
}

func TestSettlementHandlerInvalidBody(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/settlements", []byte(`invalid`))
	NewSettlementHandler(&settlementServiceMock{}).Settle(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type classServiceMock struct {
	classService
	hit bool
}

func (m *classServiceMock) Catalog(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, bool, error) {
	return []models.Class{{ID: "c1", Status: models.ClassStatusApproved}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, m.hit, nil
}

func (m *classServiceMock) ChangeStatus(ctx context.Context, id string, req models.ClassStatusRequest) (*models.Class, error) {
	if id == "done" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class has already been approved")
	}
	return &models.Class{ID: id, Status: req.Status}, nil
}

func TestClassHandlerListReportsCacheHit(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/classes?page=2&limit=5", nil)
	middleware.WithResponseMeta()(c)

	NewClassHandler(&classServiceMock{hit: true}).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"page_size":5`)
}

func TestClassHandlerUpdateStatus(t *testing.T) {
	handler := NewClassHandler(&classServiceMock{})

	c, w := newTestContext(http.MethodPatch, "/classes/c1/status", []byte(`{"status":"approved"}`))
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	changes, ok := c.Get("audit_changes")
	require.True(t, ok)
	assert.Equal(t, gin.H{"status": models.ClassStatusApproved}, changes)

	c, w = newTestContext(http.MethodPatch, "/classes/done/status", []byte(`{"status":"rejected"}`))
	c.Params = gin.Params{{Key: "id", Value: "done"}}
	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

type reservationServiceMock struct {
	reservationService
	deleted int64
}

func (m *reservationServiceMock) Cancel(ctx context.Context, principal *models.Principal, id string) (*models.CancelResult, error) {
	return &models.CancelResult{Deleted: m.deleted}, nil
}

func TestReservationHandlerCancelIsIdempotent(t *testing.T) {
	c, w := newTestContext(http.MethodDelete, "/reservations/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	NewReservationHandler(&reservationServiceMock{deleted: 0}).Cancel(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":0`)
}

type paymentServiceMock struct {
	format string
	email  string
}

func (m *paymentServiceMock) History(ctx context.Context, studentEmail string) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

func (m *paymentServiceMock) Export(ctx context.Context, studentEmail, format string) (*service.PaymentExport, error) {
	m.email, m.format = studentEmail, format
	return &service.PaymentExport{Filename: "payments.csv", ContentType: "text/csv", Body: []byte("a,b\n")}, nil
}

func TestPaymentHandlerExportStreamsAttachment(t *testing.T) {
	svc := &paymentServiceMock{}
	c, w := newTestContext(http.MethodGet, "/users/Sam@Example.com/payments/export", nil)
	c.Params = gin.Params{{Key: "email", Value: "Sam@Example.com"}}

	NewPaymentHandler(svc).Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sam@example.com", svc.email)
	assert.Equal(t, service.ExportFormatCSV, svc.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payments.csv")
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := ReadinessCheck{Name: "postgres", Ping: func(ctx context.Context) error { return nil }}
	broken := ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error { return errors.New("down") }}

	c, w := newTestContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, nil, healthy).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, nil, healthy, broken).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
}
