package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/inventory"
)

const DefaultSheetTitle = "FICHA DE ACTIVO - SERVYRE"

// PDFOptions controls document chrome. Zero values fall back to defaults.
type PDFOptions struct {
	Title       string
	GeneratedAt time.Time
}

func (o PDFOptions) title(fallback string) string {
	if o.Title != "" {
		return o.Title
	}
	return fallback
}

func (o PDFOptions) generatedAt() time.Time {
	if o.GeneratedAt.IsZero() {
		return time.Now()
	}
	return o.GeneratedAt
}

// SheetRows is the concept/value list printed on an asset sheet.
func SheetRows(r inventory.AssetRecord) [][2]string {
	return [][2]string{
		{"Ubicación", r.Location},
		{"Dirección", r.Address},
		{"Departamento", r.Department},
		{"Puesto", r.Position},
		{"Asignado a", r.FullName},
		{"Correo", r.Email},
		{"Resguardo", r.Resguardo},
		{"Equipo", r.DeviceType},
		{"Marca/Modelo", r.Brand + " " + r.Model},
		{"N° Serie", r.SerialNumber},
		{"Nombre PC", r.PCName},
		{"Procesador", r.Processor},
		{"RAM", strconv.Itoa(r.RAM) + " GB"},
		{"Disco", strconv.Itoa(r.StorageCapacity) + " GB " + string(r.StorageType)},
		{"Mouse Externo", yesNo(r.MouseExternal)},
	}
}

// SheetFileName is the download name the sheet is saved under.
func SheetFileName(r inventory.AssetRecord) string {
	return "Servyre_" + r.SerialNumber + ".pdf"
}

// WriteAssetSheetPDF renders the single-asset sheet on an A4 page.
func WriteAssetSheetPDF(w io.Writer, record inventory.AssetRecord, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(opts.title(DefaultSheetTitle)), false)
	pdf.AddPage()

	banner(pdf, tr(opts.title(DefaultSheetTitle)), 210)

	pdf.SetXY(15, 50)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(60, 9, tr("Concepto"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(120, 9, tr("Información"), "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(15, 23, 42)
	for i, row := range SheetRows(record) {
		striped := i%2 == 1
		pdf.SetFillColor(241, 245, 249)
		pdf.SetX(15)
		pdf.CellFormat(60, 8, tr(row[0]), "1", 0, "L", striped, 0, "")
		pdf.CellFormat(120, 8, tr(row[1]), "1", 1, "L", striped, 0, "")
	}

	if record.Notes != "" {
		pdf.Ln(4)
		pdf.SetX(15)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(180, 7, tr("Notas"), "", 1, "L", false, 0, "")
		pdf.SetX(15)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(180, 6, tr(record.Notes), "", "L", false)
	}

	footer(pdf, tr, opts.generatedAt())
	return output(pdf, w, "asset sheet")
}

var reportColumns = []struct {
	header string
	width  float64
	value  func(inventory.AssetRecord) string
}{
	{"Asignado a", 48, func(r inventory.AssetRecord) string { return r.FullName }},
	{"Ubicación", 30, func(r inventory.AssetRecord) string { return r.Location }},
	{"Departamento", 34, func(r inventory.AssetRecord) string { return r.Department }},
	{"Equipo", 26, func(r inventory.AssetRecord) string { return r.DeviceType }},
	{"Marca/Modelo", 46, func(r inventory.AssetRecord) string { return r.Brand + " " + r.Model }},
	{"N° Serie", 36, func(r inventory.AssetRecord) string { return r.SerialNumber }},
	{"Estado", 26, func(r inventory.AssetRecord) string { return string(r.Status) }},
	{"RAM/Disco", 31, func(r inventory.AssetRecord) string {
		return fmt.Sprintf("%d GB / %d GB %s", r.RAM, r.StorageCapacity, r.StorageType)
	}},
}

// WriteReportPDF renders every record as one row of a landscape table,
// in snapshot order, repeating the header on each page.
func WriteReportPDF(w io.Writer, snapshot codec.Snapshot, opts PDFOptions) error {
	title := opts.title("INVENTARIO - SERVYRE")
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(title), false)
	pdf.SetAutoPageBreak(true, 15)

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(30, 41, 59)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetX(10)
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 8, tr(col.header), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(15, 23, 42)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			pdf.SetY(10)
			header()
		}
	})

	pdf.AddPage()
	banner(pdf, tr(title), 297)
	pdf.SetXY(10, 34)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(15, 23, 42)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Registros: %d", len(snapshot.Records))), "", 1, "L", false, 0, "")
	pdf.SetY(42)
	header()

	for i, record := range snapshot.Records {
		striped := i%2 == 1
		pdf.SetFillColor(241, 245, 249)
		pdf.SetX(10)
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 7, tr(truncate(col.value(record), int(col.width/1.6))), "1", 0, "L", striped, 0, "")
		}
		pdf.Ln(-1)
	}

	footer(pdf, tr, opts.generatedAt())
	return output(pdf, w, "report")
}

func banner(pdf *fpdf.Fpdf, title string, pageWidth float64) {
	pdf.SetFillColor(30, 41, 59)
	pdf.Rect(0, 0, pageWidth, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(15, 18, title)
}

func footer(pdf *fpdf.Fpdf, tr func(string) string, at time.Time) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(100, 116, 139)
	pdf.SetX(15)
	pdf.CellFormat(0, 5, tr("Generado: "+at.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
}

func output(pdf *fpdf.Fpdf, w io.Writer, what string) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("write %s pdf: %w", what, err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write %s pdf: %w", what, err)
	}
	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 3 || len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
