package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
	"github.com/noah-isme/summercamp-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type paymentHistory interface {
	ListByStudent(ctx context.Context, studentEmail string) ([]models.Payment, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// PaymentExport is a rendered statement ready to stream.
type PaymentExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// PaymentService serves the read side of the payment ledger.
type PaymentService struct {
	repo           paymentHistory
	csv            csvRenderer
	pdf            pdfRenderer
	exportsEnabled bool
	logger         *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentHistory, exportsEnabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &PaymentService{repo: repo, csv: csv, pdf: pdf, exportsEnabled: exportsEnabled, logger: logger}
}

// History returns the student's payments, newest first.
func (s *PaymentService) History(ctx context.Context, studentEmail string) ([]models.Payment, error) {
	payments, err := s.repo.ListByStudent(ctx, studentEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// Export renders the student's payment history as CSV or PDF.
func (s *PaymentService) Export(ctx context.Context, studentEmail, format string) (*PaymentExport, error) {
	if !s.exportsEnabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	payments, err := s.History(ctx, studentEmail)
	if err != nil {
		return nil, err
	}
	dataset := paymentDataset(studentEmail, payments)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		body, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		s.logger.Error("payment export render failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &PaymentExport{
		Filename:    fmt.Sprintf("payments-%s.%s", time.Now().UTC().Format("20060102"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func paymentDataset(studentEmail string, payments []models.Payment) export.Dataset {
	rows := make([][]string, 0, len(payments))
	totals := map[string]float64{}
	var currencies []string
	for _, p := range payments {
		currency := strings.ToUpper(p.Currency)
		if _, seen := totals[currency]; !seen {
			currencies = append(currencies, currency)
		}
		totals[currency] += p.Amount
		rows = append(rows, []string{
			p.PaidAt.UTC().Format("2006-01-02 15:04"),
			p.ClassName,
			p.TransactionID,
			strconv.FormatFloat(p.Amount, 'f', 2, 64),
			currency,
		})
	}

	dataset := export.Dataset{
		Title:    "Payment history",
		Subtitle: studentEmail,
		Headers:  []string{"Date", "Class", "Transaction", "Amount", "Currency"},
		Rows:     rows,
	}
	// Mixed currencies get no single total.
	if len(currencies) == 1 {
		dataset.Footer = []string{"", "", "Total", strconv.FormatFloat(totals[currencies[0]], 'f', 2, 64), currencies[0]}
	}
	return dataset
}
