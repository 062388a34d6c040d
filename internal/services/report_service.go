package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"go.uber.org/zap"
)

// ReportService builds the admin record listing and its CSV and PDF exports.
type ReportService struct {
	store Store
	log   *zap.Logger
}

func NewReportService(store Store, log *zap.Logger) *ReportService {
	return &ReportService{store: store, log: log.Named("reports")}
}

// ListRecords returns every record matching f, newest first, with items
// attached. An empty filter lists everything.
func (s *ReportService) ListRecords(ctx context.Context, f models.RecordFilter) ([]models.Record, error) {
	records, err := s.store.Records().ListByFilter(ctx, f, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %w", ErrStorage, err)
	}
	if len(records) == 0 {
		return []models.Record{}, nil
	}

	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	items, err := s.store.Records().ItemsByRecordIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %w", ErrStorage, err)
	}
	byRecord := make(map[int64][]models.Item, len(records))
	for _, it := range items {
		byRecord[it.RecordID] = append(byRecord[it.RecordID], it)
	}
	for i := range records {
		records[i].Items = byRecord[records[i].ID]
	}
	return records, nil
}

func itemsSummary(items []models.Item) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.ItemName, it.ItemCount))
	}
	return strings.Join(parts, "; ")
}

func returnedAt(r models.Record) string {
	if r.ReturnedAt == nil {
		return ""
	}
	return timeutil.FormatIST(*r.ReturnedAt, timeutil.DateTimeLayout)
}

// RecordsCSV renders records as CSV, one row per record.
func (s *ReportService) RecordsCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"#", "ID", "Token", "Event", "Location", "Status",
		"Deposited At", "Returned At", "Items", "Total Count", "Person Photo",
	})

	for i, r := range records {
		total := 0
		for _, it := range r.Items {
			total += it.ItemCount
		}
		photo := ""
		if r.PersonPhotoPath != nil {
			photo = *r.PersonPhotoPath
		}
		w.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(r.ID, 10),
			r.TokenNumber,
			r.EventName,
			r.Location,
			string(r.Status),
			timeutil.FormatIST(r.DepositedAt, timeutil.DateTimeLayout),
			returnedAt(r),
			itemsSummary(r.Items),
			strconv.Itoa(total),
			photo,
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// RecordsPDF renders records as a landscape A4 table.
func (s *ReportService) RecordsPDF(records []models.Record, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(277, 12, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Generated: %s", timeutil.FormatIST(timeutil.Now(), timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	deposited, returned := 0, 0
	for _, r := range records {
		if r.Status == models.StatusReturned {
			returned++
		} else {
			deposited++
		}
	}
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(92, 8, fmt.Sprintf("Total Records: %d", len(records)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(92, 8, fmt.Sprintf("Deposited: %d", deposited), "1", 0, "C", true, 0, "")
	pdf.CellFormat(93, 8, fmt.Sprintf("Returned: %d", returned), "1", 1, "C", true, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Token", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Event", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Location", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 7, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(38, 7, "Deposited", "1", 0, "C", true, 0, "")
	pdf.CellFormat(38, 7, "Returned", "1", 0, "C", true, 0, "")
	pdf.CellFormat(62, 7, "Items", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, r := range records {
		if i%2 == 0 {
			pdf.SetFillColor(255, 255, 255)
		} else {
			pdf.SetFillColor(245, 245, 245)
		}
		pdf.CellFormat(12, 6, strconv.Itoa(i+1), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 6, truncate(r.TokenNumber, 12), "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 6, truncate(r.EventName, 24), "1", 0, "L", true, 0, "")
		pdf.CellFormat(35, 6, truncate(r.Location, 18), "1", 0, "L", true, 0, "")
		pdf.CellFormat(22, 6, strings.ToUpper(string(r.Status)), "1", 0, "C", true, 0, "")
		pdf.CellFormat(38, 6, timeutil.FormatIST(r.DepositedAt, timeutil.DateTimeLayout), "1", 0, "C", true, 0, "")
		pdf.CellFormat(38, 6, returnedAt(r), "1", 0, "C", true, 0, "")
		pdf.CellFormat(62, 6, truncate(itemsSummary(r.Items), 34), "1", 1, "L", true, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.log.Error("render pdf", zap.Error(err))
		return nil, err
	}
	return buf.Bytes(), nil
}
