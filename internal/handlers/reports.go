package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"relatorios/internal/apperrors"
	"relatorios/internal/models"
)

const msgReportNotFound = "Relatório não encontrado!"

func NewReportFormHandler(c *gin.Context, d *Deps) {
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Editing": false,
		"Report":  models.Report{},
		"Fields":  formFields(models.ReportFields{}),
		"Flash":   popFlashes(c, d),
	})
}

func SaveReportHandler(c *gin.Context, d *Deps) {
	uploads, err := parseUploads(c)
	if err != nil {
		redirectWithFlash(c, d, "error", err.Error(), "/")
		return
	}
	var fields models.ReportFields
	if err := c.ShouldBind(&fields); err != nil {
		redirectWithFlash(c, d, "error", "Formulário inválido: "+err.Error(), "/")
		return
	}
	id, err := d.Service.SaveReport(c.Request.Context(), fields, uploads)
	if err != nil {
		d.Log.Warn("save report failed", zap.Error(err))
		redirectWithFlash(c, d, "error", "Erro ao salvar relatório: "+err.Error(), "/")
		return
	}
	redirectWithFlash(c, d, "success", "Relatório e fotos salvos com sucesso!", fmt.Sprintf("/view/%d", id))
}

func ListReportsHandler(c *gin.Context, d *Deps) {
	reports, err := d.Service.ListReports(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "Erro ao listar relatórios: %s", err.Error())
		return
	}
	c.HTML(http.StatusOK, "list.html", gin.H{
		"Reports": reports,
		"Flash":   popFlashes(c, d),
	})
}

func ViewReportHandler(c *gin.Context, d *Deps) {
	id, ok := parseID(c, "id")
	if !ok {
		redirectWithFlash(c, d, "error", msgReportNotFound, "/list")
		return
	}
	report, photos, err := d.Service.ViewReport(c.Request.Context(), id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			d.Log.Error("view report failed", zap.Uint("report_id", id), zap.Error(err))
		}
		redirectWithFlash(c, d, "error", msgReportNotFound, "/list")
		return
	}
	c.HTML(http.StatusOK, "view.html", gin.H{
		"Report": report,
		"Fields": formFields(report.ReportFields),
		"Photos": photos,
		"Flash":  popFlashes(c, d),
	})
}

func EditReportFormHandler(c *gin.Context, d *Deps) {
	id, ok := parseID(c, "id")
	if !ok {
		redirectWithFlash(c, d, "error", msgReportNotFound, "/list")
		return
	}
	report, photos, err := d.Service.ViewReport(c.Request.Context(), id)
	if err != nil {
		redirectWithFlash(c, d, "error", msgReportNotFound, "/list")
		return
	}
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Editing": true,
		"Report":  report,
		"Fields":  formFields(report.ReportFields),
		"Photos":  photos,
		"Flash":   popFlashes(c, d),
	})
}

func EditReportHandler(c *gin.Context, d *Deps) {
	id, ok := parseID(c, "id")
	if !ok {
		redirectWithFlash(c, d, "error", msgReportNotFound, "/list")
		return
	}
	editPath := fmt.Sprintf("/edit/%d", id)

	uploads, err := parseUploads(c)
	if err != nil {
		redirectWithFlash(c, d, "error", err.Error(), editPath)
		return
	}
	var fields models.ReportFields
	if err := c.ShouldBind(&fields); err != nil {
		redirectWithFlash(c, d, "error", "Formulário inválido: "+err.Error(), editPath)
		return
	}
	err = d.Service.EditReport(c.Request.Context(), id, fields, parseRemoveIDs(c), uploads)
	if err != nil {
		d.Log.Warn("edit report failed", zap.Uint("report_id", id), zap.Error(err))
		redirectWithFlash(c, d, "error", "Erro ao atualizar relatório: "+err.Error(), editPath)
		return
	}
	redirectWithFlash(c, d, "success", "Relatório atualizado com sucesso!", fmt.Sprintf("/view/%d", id))
}
