// Package service implements the report use cases on top of the report store,
// the attachment store and the PDF exporter.
package service

import (
	"context"

	"go.uber.org/zap"

	"relatorios/internal/apperrors"
	"relatorios/internal/attachments"
	"relatorios/internal/models"
	"relatorios/internal/pdfexport"
	"relatorios/internal/store"
)

// Labels for uploads submitted without a title entry.
const (
	NewReportPhotoTitle  = "Sem nome"
	EditReportPhotoTitle = "Sem título"
)

type Service struct {
	db          *store.SQLiteStore
	attachments *attachments.Store
	exporter    *pdfexport.Exporter
	log         *zap.Logger
}

func New(db *store.SQLiteStore, att *attachments.Store, exporter *pdfexport.Exporter, log *zap.Logger) *Service {
	return &Service{db: db, attachments: att, exporter: exporter, log: log.Named("service")}
}

// atomic runs fn in one transaction and settles attachment files afterwards.
func (s *Service) atomic(ctx context.Context, fn func(tx *store.SQLiteStore, att *attachments.Store) error) error {
	var att *attachments.Store
	err := s.db.Transaction(ctx, func(tx *store.SQLiteStore) error {
		att = s.attachments.WithTx(tx)
		return fn(tx, att)
	})
	if att != nil {
		att.Finish(err)
	}
	return err
}

func addUploads(ctx context.Context, att *attachments.Store, reportID uint, uploads []attachments.Upload, placeholder string) error {
	for _, up := range uploads {
		if up.Filename == "" {
			continue
		}
		if up.Untitled {
			up.Title = placeholder
		}
		if _, err := att.Add(ctx, reportID, up); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport creates a report with its photos. Any failing photo aborts the
// whole save: no report row, no photo rows, no files.
func (s *Service) SaveReport(ctx context.Context, fields models.ReportFields, uploads []attachments.Upload) (uint, error) {
	var id uint
	err := s.atomic(ctx, func(tx *store.SQLiteStore, att *attachments.Store) error {
		var err error
		if id, err = tx.CreateReport(ctx, fields); err != nil {
			return err
		}
		return addUploads(ctx, att, id, uploads, NewReportPhotoTitle)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("report saved", zap.Uint("report_id", id), zap.Int("uploads", len(uploads)))
	return id, nil
}

// EditReport overwrites the report fields, removes the listed photos and adds
// the new uploads, in that order and in one transaction. Unknown photo ids in
// removeIDs are skipped.
func (s *Service) EditReport(ctx context.Context, id uint, fields models.ReportFields, removeIDs []uint, uploads []attachments.Upload) error {
	err := s.atomic(ctx, func(tx *store.SQLiteStore, att *attachments.Store) error {
		if err := tx.UpdateReport(ctx, id, fields); err != nil {
			return err
		}
		for _, photoID := range removeIDs {
			if err := att.Remove(ctx, photoID); err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return err
			}
		}
		return addUploads(ctx, att, id, uploads, EditReportPhotoTitle)
	})
	if err != nil {
		return err
	}
	s.log.Info("report edited", zap.Uint("report_id", id), zap.Int("removed", len(removeIDs)), zap.Int("uploads", len(uploads)))
	return nil
}

// ViewReport returns the report and its photos that still have a file.
func (s *Service) ViewReport(ctx context.Context, id uint) (*models.Report, []models.Photo, error) {
	report, err := s.db.GetReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	photos, err := s.attachments.ListValid(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return report, photos, nil
}

func (s *Service) ListReports(ctx context.Context) ([]models.ReportSummary, error) {
	return s.db.ListReportSummaries(ctx)
}

// UploadPhoto attaches a single photo to an existing report. The photo has
// no title.
func (s *Service) UploadPhoto(ctx context.Context, reportID uint, up attachments.Upload) (*models.Photo, error) {
	if _, err := s.db.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	photo, err := s.attachments.Add(ctx, reportID, up)
	if err != nil {
		return nil, err
	}
	s.log.Info("photo uploaded", zap.Uint("report_id", reportID), zap.String("file", photo.Filename))
	return photo, nil
}

func (s *Service) DeletePhoto(ctx context.Context, photoID uint) error {
	if err := s.attachments.Remove(ctx, photoID); err != nil {
		return err
	}
	s.log.Info("photo deleted", zap.Uint("photo_id", photoID))
	return nil
}

// EditPhoto replaces a photo's file with an edited image sent as a data URI.
func (s *Service) EditPhoto(ctx context.Context, photoID uint, dataURI string) error {
	if dataURI == "" {
		return apperrors.Invalid("no image sent")
	}
	if err := s.attachments.ReplaceDataURI(ctx, photoID, dataURI); err != nil {
		return err
	}
	s.log.Info("photo edited", zap.Uint("photo_id", photoID))
	return nil
}

// ExportPDF renders the report with its valid photos.
func (s *Service) ExportPDF(ctx context.Context, id uint) (*pdfexport.Document, error) {
	report, photos, err := s.ViewReport(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Render(report, photos)
	if err != nil {
		s.log.Error("pdf render failed", zap.Uint("report_id", id), zap.Error(err))
		return nil, err
	}
	return &pdfexport.Document{Filename: pdfexport.Filename(report), Data: data}, nil
}

// AuditPhotos compares a report's photo rows against the upload directory;
// reportID 0 audits every report.
func (s *Service) AuditPhotos(ctx context.Context, reportID uint) (*attachments.Audit, error) {
	return s.attachments.Audit(ctx, reportID)
}
