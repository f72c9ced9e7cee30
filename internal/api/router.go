package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relatorios/internal/handlers"
	"relatorios/internal/logger"
	"relatorios/internal/web"
)

// NewRouter builds the gin engine with middleware, templates and all routes.
func NewRouter(d *handlers.Deps, maxUploadMB int64) *gin.Engine {
	r := gin.New()
	limit := maxUploadMB << 20
	r.Use(logger.GinMiddleware(d.Log), gin.Recovery(), bodyLimit(limit))
	r.MaxMultipartMemory = limit
	r.SetHTMLTemplate(web.Templates())
	RegisterRoutes(r, d)
	return r
}

// bodyLimit caps request bodies at n bytes; reads past the cap fail.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

type route struct {
	method  string
	paths   []string
	handler func(*gin.Context, *handlers.Deps)
}

func RegisterRoutes(r *gin.Engine, d *handlers.Deps) {
	// the second path of each route is the legacy Portuguese one
	routes := []route{
		{http.MethodGet, []string{"/"}, handlers.NewReportFormHandler},
		{http.MethodPost, []string{"/save", "/salvar"}, handlers.SaveReportHandler},
		{http.MethodGet, []string{"/list", "/listar"}, handlers.ListReportsHandler},
		{http.MethodGet, []string{"/view/:id", "/ver/:id"}, handlers.ViewReportHandler},
		{http.MethodGet, []string{"/edit/:id", "/editar/:id"}, handlers.EditReportFormHandler},
		{http.MethodPost, []string{"/edit/:id", "/editar/:id"}, handlers.EditReportHandler},

		{http.MethodPost, []string{"/upload_photo/:report_id", "/upload_foto/:report_id"}, handlers.UploadPhotoHandler},
		{http.MethodPost, []string{"/delete_photo/:photo_id", "/deletar_foto/:photo_id"}, handlers.DeletePhotoHandler},
		{http.MethodPost, []string{"/edit_photo/:photo_id", "/editar_foto/:photo_id"}, handlers.EditPhotoHandler},
		{http.MethodGet, []string{"/attachments/*filename", "/uploads/*filename"}, handlers.ServeAttachmentHandler},
		{http.MethodGet, []string{"/debug_photos/:report_id", "/debug_fotos/:report_id"}, handlers.AuditPhotosHandler},

		{http.MethodGet, []string{"/pdf/:id"}, handlers.DownloadPDFHandler},
		{http.MethodGet, []string{"/pdf/view/:id", "/pdf/visualizar/:id"}, handlers.ViewPDFHandler},
	}
	for _, rt := range routes {
		h := rt.handler
		for _, p := range rt.paths {
			r.Handle(rt.method, p, func(c *gin.Context) {
				h(c, d)
			})
		}
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		// the Swagger UI replaced the hand-written openapi file
		v1.GET("/openapi.json", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/swagger/index.html")
		})
	}

	d.Log.Debug("routes registered", zap.Int("count", len(r.Routes())))
}
