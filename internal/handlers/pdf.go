package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relatorios/internal/apperrors"
	"relatorios/internal/pdfexport"
)

// @Summary Download report PDF
// @Tags pdf
// @Produce application/pdf
// @Param id path int true "report id"
// @Success 200 {file} file
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /pdf/{id} [get]
func DownloadPDFHandler(c *gin.Context, d *Deps) {
	servePDF(c, d, pdfexport.Attachment)
}

// @Summary View report PDF inline
// @Tags pdf
// @Produce application/pdf
// @Param id path int true "report id"
// @Success 200 {file} file
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /pdf/view/{id} [get]
func ViewPDFHandler(c *gin.Context, d *Deps) {
	servePDF(c, d, pdfexport.Inline)
}

func servePDF(c *gin.Context, d *Deps, mode string) {
	id, ok := parseID(c, "id")
	if !ok {
		c.String(http.StatusNotFound, "Relatório não encontrado")
		return
	}
	doc, err := d.Service.ExportPDF(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.String(http.StatusNotFound, "Relatório não encontrado")
			return
		}
		c.String(http.StatusInternalServerError, "Erro ao gerar PDF: %s", err.Error())
		return
	}
	c.Header("Content-Disposition", pdfexport.Disposition(mode, doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}
