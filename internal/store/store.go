package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"relatorios/internal/apperrors"
	"relatorios/internal/logger"
	"relatorios/internal/models"
)

// SQLiteStore is the explicit handle to the relational store. Inside
// Transaction the handle passed to the callback is bound to the transaction.
type SQLiteStore struct {
	DB *gorm.DB
}

func NewSQLiteStore(path string, log *zap.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLogger(log),
	})
	if err != nil {
		return nil, apperrors.Storage("failed to open database", err)
	}

	if err := db.AutoMigrate(&models.Report{}, &models.Photo{}); err != nil {
		return nil, apperrors.Storage("failed to migrate database", err)
	}

	return &SQLiteStore{DB: db}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn in a single transaction; fn's error rolls it back.
func (s *SQLiteStore) Transaction(ctx context.Context, fn func(tx *SQLiteStore) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteStore{DB: tx})
	})
}

func (s *SQLiteStore) CreateReport(ctx context.Context, fields models.ReportFields) (uint, error) {
	r := &models.Report{ReportFields: fields}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return 0, apperrors.Storage("failed to create report", err)
	}
	return r.ID, nil
}

// UpdateReport overwrites every mutable column of report id. An unknown id
// updates zero rows and is not an error.
func (s *SQLiteStore) UpdateReport(ctx context.Context, id uint, fields models.ReportFields) error {
	err := s.DB.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		Updates(fields.Columns()).Error
	return apperrors.Storage("failed to update report", err)
}

func (s *SQLiteStore) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	err := s.DB.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("report %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load report", err)
	}
	return &r, nil
}

// ListReportSummaries returns every report, most recently created first.
func (s *SQLiteStore) ListReportSummaries(ctx context.Context) ([]models.ReportSummary, error) {
	out := []models.ReportSummary{}
	err := s.DB.WithContext(ctx).
		Model(&models.Report{}).
		Select("id, cod_rev, num_os, cliente, data, tecnico, nivel, contato, modelo, serie, created_at").
		Order("created_at desc").
		Order("id desc").
		Scan(&out).Error
	if err != nil {
		return nil, apperrors.Storage("failed to list reports", err)
	}
	return out, nil
}

// HasPhotoTable reports whether the photo table exists yet.
func (s *SQLiteStore) HasPhotoTable(ctx context.Context) bool {
	return s.DB.WithContext(ctx).Migrator().HasTable(&models.Photo{})
}

func (s *SQLiteStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	return apperrors.Storage("failed to create photo", s.DB.WithContext(ctx).Create(p).Error)
}

func (s *SQLiteStore) GetPhoto(ctx context.Context, id uint) (*models.Photo, error) {
	var p models.Photo
	err := s.DB.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("photo %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Storage("failed to load photo", err)
	}
	return &p, nil
}

func (s *SQLiteStore) DeletePhoto(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Photo{}, id)
	if res.Error != nil {
		return apperrors.Storage("failed to delete photo", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("photo %d not found", id)
	}
	return nil
}

// ListPhotos returns the photo rows of a report in insertion order.
func (s *SQLiteStore) ListPhotos(ctx context.Context, reportID uint) ([]models.Photo, error) {
	out := []models.Photo{}
	err := s.DB.WithContext(ctx).Where("relatorio_id = ?", reportID).Order("id asc").Find(&out).Error
	if err != nil {
		return nil, apperrors.Storage("failed to list photos", err)
	}
	return out, nil
}

// ListAllPhotos returns every photo row, used by attachment audits.
func (s *SQLiteStore) ListAllPhotos(ctx context.Context) ([]models.Photo, error) {
	out := []models.Photo{}
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&out).Error; err != nil {
		return nil, apperrors.Storage("failed to list photos", err)
	}
	return out, nil
}
