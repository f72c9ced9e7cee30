package models

import "time"

// ReportFields are the free-text columns a technician fills in. Every field is
// optional; the form and column names follow the legacy relatorios schema.
type ReportFields struct {
	RevisionCode       string `gorm:"column:cod_rev" form:"cod_rev" json:"cod_rev"`
	OrderNumber        string `gorm:"column:num_os" form:"num_os" json:"num_os"`
	Client             string `gorm:"column:cliente" form:"cliente" json:"cliente"`
	Date               string `gorm:"column:data" form:"data" json:"data"`
	Technician         string `gorm:"column:tecnico" form:"tecnico" json:"tecnico"`
	Level              string `gorm:"column:nivel" form:"nivel" json:"nivel"`
	Contact            string `gorm:"column:contato" form:"contato" json:"contato"`
	Model              string `gorm:"column:modelo" form:"modelo" json:"modelo"`
	Prefix             string `gorm:"column:prefixo" form:"prefixo" json:"prefixo"`
	Serial             string `gorm:"column:serie" form:"serie" json:"serie"`
	Instructions       string `gorm:"column:instrucoes" form:"instrucoes" json:"instrucoes"`
	Complaint          string `gorm:"column:reclamacao" form:"reclamacao" json:"reclamacao"`
	Cause              string `gorm:"column:causa" form:"causa" json:"causa"`
	Damage             string `gorm:"column:dano" form:"dano" json:"dano"`
	Comments           string `gorm:"column:comentarios" form:"comentarios" json:"comentarios"`
	PartNumber         string `gorm:"column:peca_numero" form:"peca_numero" json:"peca_numero"`
	FailureCode        string `gorm:"column:falha_codigo" form:"falha_codigo" json:"falha_codigo"`
	FailureQuantity    string `gorm:"column:falha_qtd" form:"falha_qtd" json:"falha_qtd"`
	SMCSCode           string `gorm:"column:smcs_code" form:"smcs_code" json:"smcs_code"`
	PartGroup          string `gorm:"column:grupo_part" form:"grupo_part" json:"grupo_part"`
	AdditionalComments string `gorm:"column:comentarios_adicionais" form:"comentarios_adicionais" json:"comentarios_adicionais"`
}

// Columns returns every mutable column with its value, for full overwrites.
func (f ReportFields) Columns() map[string]any {
	return map[string]any{
		"cod_rev":                f.RevisionCode,
		"num_os":                 f.OrderNumber,
		"cliente":                f.Client,
		"data":                   f.Date,
		"tecnico":                f.Technician,
		"nivel":                  f.Level,
		"contato":                f.Contact,
		"modelo":                 f.Model,
		"prefixo":                f.Prefix,
		"serie":                  f.Serial,
		"instrucoes":             f.Instructions,
		"reclamacao":             f.Complaint,
		"causa":                  f.Cause,
		"dano":                   f.Damage,
		"comentarios":            f.Comments,
		"peca_numero":            f.PartNumber,
		"falha_codigo":           f.FailureCode,
		"falha_qtd":              f.FailureQuantity,
		"smcs_code":              f.SMCSCode,
		"grupo_part":             f.PartGroup,
		"comentarios_adicionais": f.AdditionalComments,
	}
}

type Report struct {
	ID uint `gorm:"primaryKey" json:"id"`
	ReportFields
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (Report) TableName() string { return "relatorios" }

// ReportSummary is the projection shown in the report list.
type ReportSummary struct {
	ID           uint      `json:"id"`
	RevisionCode string    `gorm:"column:cod_rev" json:"cod_rev"`
	OrderNumber  string    `gorm:"column:num_os" json:"num_os"`
	Client       string    `gorm:"column:cliente" json:"cliente"`
	Date         string    `gorm:"column:data" json:"data"`
	Technician   string    `gorm:"column:tecnico" json:"tecnico"`
	Level        string    `gorm:"column:nivel" json:"nivel"`
	Contact      string    `gorm:"column:contato" json:"contato"`
	Model        string    `gorm:"column:modelo" json:"modelo"`
	Serial       string    `gorm:"column:serie" json:"serie"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

// Photo is one stored attachment. OriginalName duplicates Filename; the column
// is kept for databases written by earlier versions.
type Photo struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ReportID     uint   `gorm:"column:relatorio_id;index" json:"relatorio_id"`
	OriginalName string `gorm:"column:nome_arquivo" json:"nome_arquivo"`
	Filename     string `gorm:"column:caminho_arquivo" json:"caminho_arquivo"`
	Title        string `gorm:"column:titulo" json:"titulo"`
}

func (Photo) TableName() string { return "fotos_relatorio" }
