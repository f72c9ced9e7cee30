package pdfexport

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"relatorios/internal/apperrors"
	"relatorios/internal/models"
	"relatorios/pkg/imagenorm"
)

// Disposition modes for serving a rendered report.
const (
	Attachment = "attachment"
	Inline     = "inline"
)

// PhotoSource yields the stored bytes of a photo.
type PhotoSource interface {
	Read(p models.Photo) ([]byte, error)
}

// Options configures page geometry and how photo paths are printed.
type Options struct {
	PageSize   string
	FontFamily string
	FontSize   float64
	// PublicPath is the URL prefix photos are served under, e.g. /attachments.
	PublicPath   string
	PhotoColumns int
	// UTF8Font is an optional TrueType font file. Without it text is
	// translated to cp1252 and runes outside it are dropped.
	UTF8Font string
}

func DefaultOptions() Options {
	return Options{
		PageSize:     "A4",
		FontFamily:   "Arial",
		FontSize:     10,
		PublicPath:   "/attachments",
		PhotoColumns: 2,
	}
}

type Exporter struct {
	photos  PhotoSource
	options Options
}

func NewExporter(photos PhotoSource, options Options) *Exporter {
	if options.PhotoColumns <= 0 {
		options.PhotoColumns = 2
	}
	return &Exporter{photos: photos, options: options}
}

// Document is a rendered report ready to be served.
type Document struct {
	Filename string
	Data     []byte
}

// Filename derives the download name from the order number, falling back to
// OS_<id>. Every rune that is not a letter or digit becomes an underscore.
func Filename(r *models.Report) string {
	base := r.OrderNumber
	if base == "" {
		base = fmt.Sprintf("OS_%d", r.ID)
	}
	safe := strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return c
		}
		return '_'
	}, base)
	return "relatorio_" + safe + ".pdf"
}

// Disposition builds the Content-Disposition header value for mode.
func Disposition(mode, filename string) string {
	if mode != Inline {
		mode = Attachment
	}
	return fmt.Sprintf("%s; filename=%s", mode, filename)
}

type field struct {
	label string
	value string
}

type section struct {
	title  string
	fields []field
	// long sections print each field as a paragraph instead of a label row
	long bool
}

func sections(r *models.Report) []section {
	return []section{
		{title: "Identificação", fields: []field{
			{"Cód. revisão", r.RevisionCode},
			{"Nº OS", r.OrderNumber},
			{"Cliente", r.Client},
			{"Data", r.Date},
			{"Técnico", r.Technician},
			{"Nível", r.Level},
			{"Contato", r.Contact},
		}},
		{title: "Equipamento", fields: []field{
			{"Modelo", r.Model},
			{"Prefixo", r.Prefix},
			{"Série", r.Serial},
		}},
		{title: "Atendimento", long: true, fields: []field{
			{"Instruções", r.Instructions},
			{"Reclamação", r.Complaint},
			{"Causa", r.Cause},
			{"Dano", r.Damage},
			{"Comentários", r.Comments},
		}},
		{title: "Peças e falhas", fields: []field{
			{"Nº da peça", r.PartNumber},
			{"Código da falha", r.FailureCode},
			{"Qtd. de falhas", r.FailureQuantity},
			{"Código SMCS", r.SMCSCode},
			{"Grupo", r.PartGroup},
		}},
		{title: "Comentários adicionais", long: true, fields: []field{
			{"", r.AdditionalComments},
		}},
	}
}

const utf8Family = "utf8"

type renderer struct {
	pdf     *gofpdf.Fpdf
	tr      func(string) string
	options Options
}

// Render lays out report and photos as a PDF. Output is byte-identical for
// identical inputs.
func (e *Exporter) Render(report *models.Report, photos []models.Photo) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", e.options.PageSize, "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(report.CreatedAt)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), options: e.options}
	if e.options.UTF8Font != "" {
		pdf.AddUTF8Font(utf8Family, "", e.options.UTF8Font)
		pdf.AddUTF8Font(utf8Family, "B", e.options.UTF8Font)
		if err := pdf.Error(); err != nil {
			return nil, apperrors.Render(err)
		}
		r.options.FontFamily = utf8Family
		r.tr = func(s string) string { return s }
	}
	pdf.SetTitle(r.tr("Relatório "+report.OrderNumber), false)
	pdf.SetFooterFunc(r.footer)

	pdf.AddPage()
	r.header(report)
	for _, s := range sections(report) {
		r.section(s)
	}
	if err := r.photos(e.photos, photos); err != nil {
		return nil, apperrors.Render(err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.Render(err)
	}
	return buf.Bytes(), nil
}

func (r *renderer) header(report *models.Report) {
	r.pdf.SetFont(r.options.FontFamily, "B", 16)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.CellFormat(0, 10, r.tr("RELATÓRIO DE SERVIÇO"), "", 1, "C", false, 0, "")

	r.pdf.SetFont(r.options.FontFamily, "", r.options.FontSize)
	r.pdf.SetTextColor(90, 90, 90)
	sub := fmt.Sprintf("OS %s   Rev. %s   Criado em %s",
		orDash(report.OrderNumber), orDash(report.RevisionCode), report.CreatedAt.Format("02/01/2006 15:04"))
	r.pdf.CellFormat(0, 6, r.tr(sub), "", 1, "C", false, 0, "")
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Ln(4)
}

func (r *renderer) sectionTitle(title string) {
	r.pdf.Ln(2)
	r.pdf.SetFont(r.options.FontFamily, "B", r.options.FontSize+2)
	r.pdf.SetFillColor(68, 114, 196)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.CellFormat(0, 7, r.tr(title), "", 1, "L", true, 0, "")
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Ln(1)
}

func (r *renderer) section(s section) {
	r.sectionTitle(s.title)
	for _, f := range s.fields {
		if s.long {
			if f.label != "" {
				r.pdf.SetFont(r.options.FontFamily, "B", r.options.FontSize)
				r.pdf.CellFormat(0, 6, r.tr(f.label), "", 1, "L", false, 0, "")
			}
			r.pdf.SetFont(r.options.FontFamily, "", r.options.FontSize)
			r.pdf.MultiCell(0, 5, r.tr(orDash(f.value)), "", "L", false)
			r.pdf.Ln(1)
			continue
		}
		r.pdf.SetFont(r.options.FontFamily, "B", r.options.FontSize)
		r.pdf.CellFormat(45, 6, r.tr(f.label+":"), "", 0, "L", false, 0, "")
		r.pdf.SetFont(r.options.FontFamily, "", r.options.FontSize)
		r.pdf.MultiCell(0, 6, r.tr(orDash(f.value)), "", "L", false)
	}
}

func (r *renderer) photos(src PhotoSource, photos []models.Photo) error {
	if len(photos) == 0 {
		return r.pdf.Error()
	}
	r.sectionTitle("Fotos")

	left, _, right, _ := r.pdf.GetMargins()
	pageW, pageH := r.pdf.GetPageSize()
	const gap = 6.0
	cols := r.options.PhotoColumns
	cellW := (pageW - left - right - gap*float64(cols-1)) / float64(cols)
	boxH := cellW * 0.75
	const captionH = 10.0

	for i, p := range photos {
		raw, err := src.Read(p)
		if err != nil {
			return fmt.Errorf("photo %d: %w", p.ID, err)
		}
		jpg, err := imagenorm.ToJPEG(raw)
		if err != nil {
			return fmt.Errorf("photo %d: %w", p.ID, err)
		}
		name := fmt.Sprintf("photo-%d", p.ID)
		info := r.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(jpg))
		if err := r.pdf.Error(); err != nil {
			return fmt.Errorf("photo %d: %w", p.ID, err)
		}

		col := i % cols
		if col == 0 && i > 0 {
			r.pdf.SetY(r.pdf.GetY() + boxH + captionH + gap)
		}
		y := r.pdf.GetY()
		if col == 0 && y+boxH+captionH > pageH-18 {
			r.pdf.AddPage()
			y = r.pdf.GetY()
		}
		x := left + float64(col)*(cellW+gap)

		w, h := fit(info.Width(), info.Height(), cellW, boxH)
		r.pdf.ImageOptions(name, x+(cellW-w)/2, y+(boxH-h)/2, w, h, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")

		title := p.Title
		if title == "" {
			title = "Sem título"
		}
		r.pdf.SetXY(x, y+boxH+1)
		r.pdf.SetFont(r.options.FontFamily, "B", r.options.FontSize-1)
		r.pdf.CellFormat(cellW, 4, r.tr(title), "", 2, "C", false, 0, "")
		r.pdf.SetFont(r.options.FontFamily, "", r.options.FontSize-3)
		r.pdf.SetTextColor(128, 128, 128)
		r.pdf.CellFormat(cellW, 4, r.options.PublicPath+"/"+p.Filename, "", 0, "C", false, 0, "")
		r.pdf.SetTextColor(0, 0, 0)
		r.pdf.SetY(y)
	}
	r.pdf.SetY(r.pdf.GetY() + boxH + captionH)
	return r.pdf.Error()
}

func (r *renderer) footer() {
	r.pdf.SetY(-12)
	r.pdf.SetFont(r.options.FontFamily, "", 8)
	r.pdf.SetTextColor(128, 128, 128)
	r.pdf.CellFormat(0, 8, r.tr(fmt.Sprintf("Página %d/{nb}", r.pdf.PageNo())), "", 0, "C", false, 0, "")
}

// fit scales w×h down or up to the largest size inside maxW×maxH.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
