package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"relatorios/internal/models"
	"relatorios/internal/service"
	"relatorios/pkg/fsops"
)

const sessionName = "relatorios"

// Deps is what every handler needs; one value is shared by all routes.
type Deps struct {
	Service  *service.Service
	Files    *fsops.Store
	Sessions sessions.Store
	Log      *zap.Logger
}

type Flash struct {
	Success []string
	Errors  []string
}

func addFlash(c *gin.Context, d *Deps, kind, msg string) {
	sess, err := d.Sessions.Get(c.Request, sessionName)
	if err != nil {
		d.Log.Warn("discarding unreadable session", zap.Error(err))
	}
	sess.AddFlash(msg, kind)
	if err := sess.Save(c.Request, c.Writer); err != nil {
		d.Log.Error("failed to save session", zap.Error(err))
	}
}

// popFlashes reads and clears pending flash messages.
func popFlashes(c *gin.Context, d *Deps) Flash {
	var f Flash
	sess, err := d.Sessions.Get(c.Request, sessionName)
	if err != nil {
		return f
	}
	for _, v := range sess.Flashes("success") {
		if s, ok := v.(string); ok {
			f.Success = append(f.Success, s)
		}
	}
	for _, v := range sess.Flashes("error") {
		if s, ok := v.(string); ok {
			f.Errors = append(f.Errors, s)
		}
	}
	if len(f.Success)+len(f.Errors) > 0 {
		if err := sess.Save(c.Request, c.Writer); err != nil {
			d.Log.Error("failed to save session", zap.Error(err))
		}
	}
	return f
}

func redirectWithFlash(c *gin.Context, d *Deps, kind, msg, location string) {
	addFlash(c, d, kind, msg)
	c.Redirect(http.StatusFound, location)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// FormField is one input of the report form and one row of the report page.
type FormField struct {
	Name  string
	Label string
	Value string
	Long  bool
}

func formFields(f models.ReportFields) []FormField {
	return []FormField{
		{"cod_rev", "Cód. revisão", f.RevisionCode, false},
		{"num_os", "Nº OS", f.OrderNumber, false},
		{"cliente", "Cliente", f.Client, false},
		{"data", "Data", f.Date, false},
		{"tecnico", "Técnico", f.Technician, false},
		{"nivel", "Nível", f.Level, false},
		{"contato", "Contato", f.Contact, false},
		{"modelo", "Modelo", f.Model, false},
		{"prefixo", "Prefixo", f.Prefix, false},
		{"serie", "Série", f.Serial, false},
		{"instrucoes", "Instruções", f.Instructions, true},
		{"reclamacao", "Reclamação", f.Complaint, true},
		{"causa", "Causa", f.Cause, true},
		{"dano", "Dano", f.Damage, true},
		{"comentarios", "Comentários", f.Comments, true},
		{"peca_numero", "Nº da peça", f.PartNumber, false},
		{"falha_codigo", "Código da falha", f.FailureCode, false},
		{"falha_qtd", "Qtd. de falhas", f.FailureQuantity, false},
		{"smcs_code", "Código SMCS", f.SMCSCode, false},
		{"grupo_part", "Grupo", f.PartGroup, false},
		{"comentarios_adicionais", "Comentários adicionais", f.AdditionalComments, true},
	}
}
