package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

const footer = "NEXT Implementos - Programa de Apoio Psicológico"

// document encapsula o fpdf com tradução UTF-8 -> cp1252 para as fontes core.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(15, 15, 15)
	p.SetAutoPageBreak(true, 15)
	d := &document{pdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
	p.SetTitle(title, true)
	p.SetFooterFunc(func() {
		p.SetY(-12)
		p.SetFont("Helvetica", "I", 8)
		p.CellFormat(0, 6, d.tr(footer), "", 0, "C", false, 0, "")
	})
	p.AddPage()
	return d
}

func (d *document) heading(s string) {
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.CellFormat(0, 9, d.tr(s), "", 1, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
}

func (d *document) section(s string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(0, 7, d.tr(s), "B", 1, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
}

func (d *document) field(label, value string) {
	if value == "" {
		return
	}
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(45, 6, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, 6, d.tr(value), "", "L", false)
}

func (d *document) row(cols []string, widths []float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont("Helvetica", style, 10)
	for i, c := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		d.pdf.CellFormat(widths[i], 6, d.tr(c), "1", 0, align, false, 0, "")
	}
	d.pdf.Ln(-1)
	d.pdf.SetFont("Helvetica", "", 10)
}

// qr desenha um QR code de url na posição atual.
func (d *document) qr(name, url string, size float64) error {
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("qrcode: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	d.pdf.ImageOptions(name, d.pdf.GetX(), d.pdf.GetY(), size, size, false, opts, 0, "")
	d.pdf.SetY(d.pdf.GetY() + size + 2)
	return nil
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
