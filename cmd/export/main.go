package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"relatorios/internal/attachments"
	"relatorios/internal/config"
	"relatorios/internal/logger"
	"relatorios/internal/pdfexport"
	"relatorios/internal/service"
	"relatorios/internal/store"
	"relatorios/pkg/fsops"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		id         = flag.Uint("id", 0, "report id")
		outDir     = flag.String("out", ".", "output directory")
	)
	flag.Parse()

	if *id == 0 {
		log.Fatal("-id is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console", Development: cfg.Log.Development})
	defer zl.Sync()

	db, err := store.NewSQLiteStore(cfg.Database.Path, zl)
	if err != nil {
		zl.Fatal("failed to open db", zap.Error(err))
	}
	defer db.Close()
	files, err := fsops.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		zl.Fatal("failed to open upload dir", zap.Error(err))
	}

	att := attachments.New(db, files, zl)
	pdfOptions := pdfexport.DefaultOptions()
	pdfOptions.UTF8Font = cfg.PDF.UTF8Font
	svc := service.New(db, att, pdfexport.NewExporter(att, pdfOptions), zl)

	doc, err := svc.ExportPDF(context.Background(), uint(*id))
	if err != nil {
		zl.Fatal("export failed", zap.Uint("report_id", uint(*id)), zap.Error(err))
	}
	path := filepath.Join(*outDir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		zl.Fatal("failed to write pdf", zap.String("path", path), zap.Error(err))
	}
	zl.Info("pdf written", zap.String("path", path), zap.Int("bytes", len(doc.Data)))
}
