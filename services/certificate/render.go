package certificate

import (
	"bytes"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

// Data is what gets printed on a certificate.
type Data struct {
	StudentName string
	CourseTitle string
	Code        string
	IssuedAt    time.Time
}

type Renderer interface {
	Render(d Data) ([]byte, error)
}

// PDFRenderer draws an A4 landscape certificate. TemplatePath, when it exists, is used as a
// full page background image.
type PDFRenderer struct {
	TemplatePath string
	Issuer       string
}

func (r PDFRenderer) Render(d Data) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	width, height := pdf.GetPageSize()

	if r.TemplatePath != "" {
		if _, err := os.Stat(r.TemplatePath); err == nil {
			pdf.ImageOptions(r.TemplatePath, 0, 0, width, height, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		}
	}

	center := func(y float64, style string, size float64, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetXY(0, y)
		pdf.CellFormat(width, size/2, tr(text), "", 0, "C", false, 0, "")
	}

	center(40, "B", 34, "Certificate of Completion")
	center(68, "", 16, "This certifies that")
	center(85, "B", 30, d.StudentName)
	center(108, "", 16, "has successfully completed")
	center(122, "B", 24, d.CourseTitle)
	center(150, "", 13, "Issued on "+d.IssuedAt.Format("January 2, 2006"))
	if r.Issuer != "" {
		center(160, "", 13, r.Issuer)
	}
	center(height-22, "", 10, "Certificate code: "+d.Code)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render certificate pdf")
	}
	return buf.Bytes(), nil
}
