package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"relatorios/docs"
	"relatorios/internal/api"
	"relatorios/internal/attachments"
	"relatorios/internal/config"
	"relatorios/internal/handlers"
	"relatorios/internal/logger"
	"relatorios/internal/pdfexport"
	"relatorios/internal/service"
	"relatorios/internal/store"
	"relatorios/pkg/fsops"
)

// @title Relatórios API
// @description Service reports with photo attachments and PDF export.
func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
	defer zl.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite 数据库
	db, err := store.NewSQLiteStore(cfg.Database.Path, zl)
	if err != nil {
		zl.Fatal("failed to open db", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer db.Close()

	files, err := fsops.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		zl.Fatal("failed to prepare upload dir", zap.String("dir", cfg.Storage.UploadDir), zap.Error(err))
	}

	att := attachments.New(db, files, zl)
	pdfOptions := pdfexport.DefaultOptions()
	pdfOptions.UTF8Font = cfg.PDF.UTF8Font
	exporter := pdfexport.NewExporter(att, pdfOptions)
	svc := service.New(db, att, exporter, zl)

	if cfg.Session.Secret == "change-me" {
		zl.Warn("session.secret is the default value; set RELATORIOS_SESSION_SECRET")
	}
	deps := &handlers.Deps{
		Service:  svc,
		Files:    files,
		Sessions: sessions.NewCookieStore([]byte(cfg.Session.Secret)),
		Log:      zl,
	}

	docs.SwaggerInfo.Title = "Relatórios API"
	docs.SwaggerInfo.Version = "v1.0.0"

	r := api.NewRouter(deps, cfg.Server.MaxUploadMB)

	// swagger UI route (embedded docs package)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	zl.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("upload_dir", files.Root))
	if err := r.Run(cfg.Server.Addr); err != nil {
		zl.Fatal("server exit", zap.Error(err))
	}
}
