// cmd/audit/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"relatorios/internal/attachments"
	"relatorios/internal/config"
	"relatorios/internal/logger"
	"relatorios/internal/store"
	"relatorios/pkg/fsops"
)

// Auditor compares photo rows with the upload directory and prints the result.
type Auditor struct {
	att      *attachments.Store
	reportID uint
	out      io.Writer
	log      *zap.Logger
}

// Run prints one audit.
func (a *Auditor) Run(ctx context.Context) error {
	audit, err := a.att.Audit(ctx, a.reportID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(audit); err != nil {
		return err
	}
	if audit.Orphaned > 0 || len(audit.StrayFiles) > 0 {
		a.log.Warn("attachments out of sync",
			zap.Int("orphaned_rows", audit.Orphaned),
			zap.Int("stray_files", len(audit.StrayFiles)))
	}
	return nil
}

// Watch re-runs the audit whenever the upload directory changes.
func (a *Auditor) Watch(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		return err
	}
	return a.att.Files().Watch(ctx, 500*time.Millisecond, func(names []string) {
		a.log.Info("upload directory changed", zap.Strings("files", names))
		if err := a.Run(ctx); err != nil {
			a.log.Error("audit failed", zap.Error(err))
		}
	})
}

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		reportID   = flag.Uint("report", 0, "report id to audit (0 = all reports)")
		watch      = flag.Bool("watch", false, "re-run the audit when the upload directory changes")
	)
	flag.Parse()

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

	a := &Auditor{
		att:      attachments.New(db, files, zl),
		reportID: uint(*reportID),
		out:      os.Stdout,
		log:      zl,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		err = a.Watch(ctx)
	} else {
		err = a.Run(ctx)
	}
	if err != nil {
		zl.Fatal("audit failed", zap.Error(err))
	}
}
