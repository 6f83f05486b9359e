package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/export"
)

type TransferOption func(*TransferService)

func WithTransferLogger(logger *slog.Logger) TransferOption {
	return func(s *TransferService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTransferAuditRecorder(recorder audit.Recorder) TransferOption {
	return func(s *TransferService) {
		s.recorder = recorder
	}
}

// WithReportTitle overrides the title printed on PDF documents.
func WithReportTitle(title string) TransferOption {
	return func(s *TransferService) {
		s.title = title
	}
}

// TransferService moves inventory data in and out of documents. Reads
// go through Snapshot; writes go through CreateAsset and UpdateAsset so
// imported rows get the same validation as manual entry.
type TransferService struct {
	store    *InventoryStore
	logger   *slog.Logger
	recorder audit.Recorder
	title    string
}

func NewTransferService(store *InventoryStore, opts ...TransferOption) *TransferService {
	s := &TransferService{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransferService) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("export xlsx: store is nil")
	}
	snapshot := s.store.Snapshot()
	if err := export.WriteXLSX(w, snapshot); err != nil {
		return 0, err
	}
	s.record(ctx, audit.Event{
		Action:     audit.ActionExportXLSX,
		TargetType: "store",
		Details:    countDetails{Records: len(snapshot.Records)},
	})
	return len(snapshot.Records), nil
}

func (s *TransferService) ExportReportPDF(ctx context.Context, w io.Writer) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("export report: store is nil")
	}
	snapshot := s.store.Snapshot()
	if err := export.WriteReportPDF(w, snapshot, export.PDFOptions{Title: s.title}); err != nil {
		return 0, err
	}
	s.record(ctx, audit.Event{
		Action:     audit.ActionExportPDF,
		TargetType: "store",
		Details:    countDetails{Records: len(snapshot.Records)},
	})
	return len(snapshot.Records), nil
}

// ExportAssetSheetPDF writes the sheet for one record. The sheet keeps
// its fixed heading regardless of the report title.
func (s *TransferService) ExportAssetSheetPDF(ctx context.Context, id string, w io.Writer) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("export asset sheet: store is nil")
	}
	record, err := s.store.GetAsset(id)
	if err != nil {
		return fmt.Errorf("export asset sheet: %w", err)
	}
	if err := export.WriteAssetSheetPDF(w, record, export.PDFOptions{}); err != nil {
		return err
	}
	s.record(ctx, audit.Event{Action: audit.ActionExportPDF, TargetType: "asset", TargetID: record.ID})
	return nil
}

// ImportXLSX creates a record per row, or handles an existing record with
// the same serial number according to mode. Rows that fail validation are
// counted and reported as warnings; storage failures abort the import.
func (s *TransferService) ImportXLSX(ctx context.Context, r io.Reader, mode ConflictMode) (ImportResult, error) {
	result := ImportResult{Warnings: []ImportWarning{}}
	if s == nil || s.store == nil {
		return result, fmt.Errorf("import xlsx: store is nil")
	}
	mode, err := ParseConflictMode(string(mode))
	if err != nil {
		return result, err
	}

	rows, err := export.ReadXLSX(r)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	for _, row := range rows {
		for _, warning := range row.Warnings {
			result.Warnings = append(result.Warnings, ImportWarning{Row: row.Row, Message: warning})
		}

		existing, found := s.store.FindBySerial(row.Fields.SerialNumber)
		switch {
		case found && mode == ConflictModeSkip:
			result.Counts.Skipped++
			continue
		case found:
			_, err = s.store.UpdateAsset(ctx, existing.ID, row.Fields)
		default:
			_, err = s.store.CreateAsset(ctx, row.Fields)
		}

		if err != nil {
			if !isRowError(err) {
				return result, fmt.Errorf("import xlsx: row %d: %w", row.Row, err)
			}
			result.Counts.Failed++
			result.Warnings = append(result.Warnings, ImportWarning{Row: row.Row, Message: err.Error()})
			continue
		}
		if found {
			result.Counts.Updated++
		} else {
			result.Counts.Created++
		}
	}

	s.logger.Info("spreadsheet imported",
		"created", result.Counts.Created,
		"updated", result.Counts.Updated,
		"skipped", result.Counts.Skipped,
		"failed", result.Counts.Failed,
	)
	s.record(ctx, audit.Event{
		Action:     audit.ActionImportXLSX,
		TargetType: "store",
		Details:    result.Counts,
	})
	return result, nil
}

func isRowError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidReference)
}

func (s *TransferService) record(ctx context.Context, event audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Error("audit record failed", "action", event.Action, "error", err)
	}
}
