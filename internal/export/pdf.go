package export

import (
	"fmt"
	"io"
	"os"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/referral-labels/internal/model"
)

const (
	fontFamily   = "label"
	labelPadding = 6.0
	lineSpacing  = 1.2
	maxFontSize  = 11
	minFontSize  = 5
)

// PDFWriter renders labels onto Avery sheets.
type PDFWriter struct {
	font []byte
}

// NewPDFWriter loads a TrueType font from fontFile. An empty path uses the
// bundled Go Regular font.
func NewPDFWriter(fontFile string) (*PDFWriter, error) {
	if fontFile == "" {
		return &PDFWriter{font: goregular.TTF}, nil
	}
	data, err := os.ReadFile(fontFile)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return &PDFWriter{font: data}, nil
}

// fontSize fits the largest label (five lines with the To: line) in the
// template's label height.
func fontSize(t LabelTemplate) int {
	size := int((t.LabelHeight - 2*labelPadding/3) / (5 * lineSpacing))
	switch {
	case size > maxFontSize:
		return maxFontSize
	case size < minFontSize:
		return minFontSize
	}
	return size
}

// Write renders labels in order and returns how many were placed.
func (p *PDFWriter) Write(w io.Writer, labels []model.MailingLabelData, opts Options) (int, error) {
	tmpl, err := Lookup(opts.Template)
	if err != nil {
		return 0, err
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: PageWidth, H: PageHeight},
		Unit:     gopdf.UnitPT,
	})
	if err := pdf.AddTTFFontData(fontFamily, p.font); err != nil {
		return 0, fmt.Errorf("load font: %w", err)
	}

	size := fontSize(tmpl)
	lineHeight := float64(size) * lineSpacing
	maxWidth := tmpl.LabelWidth - 2*labelPadding

	page := 0
	for i, l := range labels {
		pos := tmpl.Locate(i)
		if pos.Page != page {
			pdf.AddPage()
			if err := pdf.SetFont(fontFamily, "", size); err != nil {
				return 0, fmt.Errorf("set font: %w", err)
			}
			page = pos.Page
		}

		lines := LabelLines(l, opts)
		block := lineHeight * float64(len(lines))
		y := pos.Y + max(labelPadding/3, (tmpl.LabelHeight-block)/2)
		for _, line := range lines {
			text, err := fitWidth(pdf, line, maxWidth)
			if err != nil {
				return 0, err
			}
			pdf.SetXY(pos.X+labelPadding, y)
			if err := pdf.Cell(nil, text); err != nil {
				return 0, fmt.Errorf("draw label %d: %w", i, err)
			}
			y += lineHeight
		}
	}
	if len(labels) == 0 {
		pdf.AddPage()
	}

	if err := pdf.Write(w); err != nil {
		return 0, fmt.Errorf("write pdf: %w", err)
	}
	return len(labels), nil
}

// fitWidth trims text from the end until it fits maxWidth.
func fitWidth(pdf *gopdf.GoPdf, text string, maxWidth float64) (string, error) {
	width, err := pdf.MeasureTextWidth(text)
	if err != nil {
		return "", fmt.Errorf("measure text: %w", err)
	}
	if width <= maxWidth {
		return text, nil
	}
	runes := []rune(text)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if width, err = pdf.MeasureTextWidth(candidate); err != nil {
			return "", fmt.Errorf("measure text: %w", err)
		}
		if width <= maxWidth {
			return candidate, nil
		}
	}
	return string(runes), nil
}
