// Package attachments manages report photos: the file in the upload directory
// and the fotos_relatorio row that points at it.
package attachments

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"relatorios/internal/models"
	"relatorios/internal/store"
	"relatorios/pkg/fsops"
	"relatorios/pkg/imagenorm"
)

// Upload is one incoming photo with the title it was submitted with.
type Upload struct {
	Filename string
	Title    string
	Data     []byte
	// Untitled is set when no title entry was submitted for the photo. An
	// explicitly blank title leaves it false.
	Untitled bool
}

type Store struct {
	db    *store.SQLiteStore
	files *fsops.Store
	log   *zap.Logger

	// set on transaction-scoped copies only
	inTx    bool
	written []string
	removed []string
}

func New(db *store.SQLiteStore, files *fsops.Store, log *zap.Logger) *Store {
	return &Store{db: db, files: files, log: log.Named("attachments")}
}

func (s *Store) Files() *fsops.Store { return s.files }

// WithTx returns a copy bound to tx. Files it writes are removed if the
// transaction fails, files it unlinks are only deleted once it commits; call
// Finish with the transaction's result.
func (s *Store) WithTx(tx *store.SQLiteStore) *Store {
	return &Store{db: tx, files: s.files, log: s.log, inTx: true}
}

// Finish settles the file side effects of a transaction-scoped copy.
func (s *Store) Finish(txErr error) {
	pending := s.removed
	if txErr != nil {
		pending = s.written
	}
	for _, name := range pending {
		if err := s.files.Remove(name); err != nil {
			s.log.Warn("failed to remove attachment file", zap.String("file", name), zap.Error(err))
		}
	}
	s.written, s.removed = nil, nil
}

func (s *Store) atomic(ctx context.Context, fn func(att *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	var scoped *Store
	err := s.db.Transaction(ctx, func(tx *store.SQLiteStore) error {
		scoped = s.WithTx(tx)
		return fn(scoped)
	})
	if scoped != nil {
		scoped.Finish(err)
	}
	return err
}

func newFilename(original string) string {
	return uuid.NewString() + imagenorm.Extension(original)
}

// Add normalizes the upload, stores it under a fresh name and records it.
func (s *Store) Add(ctx context.Context, reportID uint, up Upload) (*models.Photo, error) {
	data, err := imagenorm.Normalize(up.Filename, up.Data)
	if err != nil {
		return nil, err
	}

	var photo *models.Photo
	err = s.atomic(ctx, func(att *Store) error {
		name := newFilename(up.Filename)
		if err := att.files.Write(name, data); err != nil {
			return err
		}
		att.written = append(att.written, name)

		photo = &models.Photo{
			ReportID:     reportID,
			OriginalName: name,
			Filename:     name,
			Title:        up.Title,
		}
		return att.db.CreatePhoto(ctx, photo)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("photo stored", zap.Uint("report_id", reportID), zap.Uint("photo_id", photo.ID), zap.String("file", photo.Filename))
	return photo, nil
}

// ListValid returns the report's photos whose file is still on disk, in
// insertion order. A database without the photo table yields no photos.
func (s *Store) ListValid(ctx context.Context, reportID uint) ([]models.Photo, error) {
	valid := []models.Photo{}
	if !s.db.HasPhotoTable(ctx) {
		return valid, nil
	}
	rows, err := s.db.ListPhotos(ctx, reportID)
	if err != nil {
		if isMissingTable(err) {
			return valid, nil
		}
		return nil, err
	}
	for _, p := range rows {
		if s.files.Exists(p.Filename) {
			valid = append(valid, p)
		}
	}
	return valid, nil
}

func isMissingTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}

// Get returns the photo row regardless of whether its file exists.
func (s *Store) Get(ctx context.Context, photoID uint) (*models.Photo, error) {
	return s.db.GetPhoto(ctx, photoID)
}

// Remove deletes the row and then, best effort, the file.
func (s *Store) Remove(ctx context.Context, photoID uint) error {
	return s.atomic(ctx, func(att *Store) error {
		photo, err := att.db.GetPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		if err := att.db.DeletePhoto(ctx, photoID); err != nil {
			return err
		}
		att.removed = append(att.removed, photo.Filename)
		return nil
	})
}

// ReplaceBytes overwrites the photo's file in place; the name does not change.
func (s *Store) ReplaceBytes(ctx context.Context, photoID uint, data []byte) error {
	photo, err := s.db.GetPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	return s.files.Write(photo.Filename, data)
}

// ReplaceDataURI decodes an edited image sent as a data URI and overwrites
// the photo with it, keeping the dimensions of the edit.
func (s *Store) ReplaceDataURI(ctx context.Context, photoID uint, dataURI string) error {
	if _, err := s.db.GetPhoto(ctx, photoID); err != nil {
		return err
	}
	data, err := imagenorm.NormalizeDataURI(dataURI)
	if err != nil {
		return err
	}
	return s.ReplaceBytes(ctx, photoID, data)
}

// Read returns the stored bytes of a photo.
func (s *Store) Read(p models.Photo) ([]byte, error) {
	return s.files.Read(p.Filename)
}

type AuditRow struct {
	Photo      models.Photo `json:"photo"`
	FileExists bool         `json:"file_exists"`
}

// Audit describes how photo rows and files on disk line up.
type Audit struct {
	ReportID    uint       `json:"report_id,omitempty"`
	UploadDir   string     `json:"upload_dir"`
	TableExists bool       `json:"table_exists"`
	Rows        []AuditRow `json:"rows"`
	Orphaned    int        `json:"orphaned_rows"`
	FilesOnDisk []string   `json:"files_on_disk"`
	StrayFiles  []string   `json:"stray_files"`
}

// Audit inspects the rows of reportID, or of every report when reportID is 0.
// Stray files are files no photo row of any report points at. Nothing is repaired.
func (s *Store) Audit(ctx context.Context, reportID uint) (*Audit, error) {
	a := &Audit{
		ReportID:    reportID,
		UploadDir:   s.files.Root,
		TableExists: s.db.HasPhotoTable(ctx),
		Rows:        []AuditRow{},
		FilesOnDisk: []string{},
		StrayFiles:  []string{},
	}

	onDisk, err := s.files.ScanAll()
	if err != nil {
		return nil, err
	}
	for name := range onDisk {
		a.FilesOnDisk = append(a.FilesOnDisk, name)
	}
	sort.Strings(a.FilesOnDisk)

	if !a.TableExists {
		a.StrayFiles = append(a.StrayFiles, a.FilesOnDisk...)
		return a, nil
	}

	all, err := s.db.ListAllPhotos(ctx)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]bool, len(all))
	for _, p := range all {
		referenced[p.Filename] = true
		if reportID != 0 && p.ReportID != reportID {
			continue
		}
		_, exists := onDisk[p.Filename]
		if !exists {
			a.Orphaned++
		}
		a.Rows = append(a.Rows, AuditRow{Photo: p, FileExists: exists})
	}
	for _, name := range a.FilesOnDisk {
		if !referenced[name] {
			a.StrayFiles = append(a.StrayFiles, name)
		}
	}
	return a, nil
}
