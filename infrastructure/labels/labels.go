// Package labels renders printable A4 pallet labels for inventory lines.
package labels

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/jung-kurt/gofpdf"
)

// InventoryLabel is the printable view of one inventory line.
type InventoryLabel struct {
	StockNumber      string
	Description      string
	Location         string
	CustomerName     string
	InboundReference string
	InboundDate      string
	Quantity         int
}

// RenderInventoryLabelsPDF renders one landscape page per label, each with
// a Code128 barcode of the stock number.
func RenderInventoryLabelsPDF(labels []InventoryLabel, printedAt time.Time) ([]byte, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels to render")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Pallet Labels", false)
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if err := addLabelPage(pdf, label, i, printedAt); err != nil {
			return nil, err
		}
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func addLabelPage(pdf *gofpdf.Fpdf, label InventoryLabel, pageIndex int, printedAt time.Time) error {
	customer := orDefault(label.CustomerName, "Unassigned")
	stock := orDefault(label.StockNumber, "N/A")
	description := orDefault(label.Description, "N/A")
	location := orDefault(label.Location, "N/A")
	reference := orDefault(label.InboundReference, "N/A")
	inbound := orDefault(label.InboundDate, "-")
	if t, err := time.Parse(time.RFC3339, inbound); err == nil {
		inbound = t.Format("02/01/2006")
	} else if t, err := time.Parse("2006-01-02", inbound); err == nil {
		inbound = t.Format("02/01/2006")
	}

	barcodePNG, err := renderCode128PNG(stock, 1200, 220)
	if err != nil {
		return fmt.Errorf("encode barcode %q: %w", stock, err)
	}

	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	margin := 12.0
	x0, y0 := margin, margin
	w0, h0 := pageW-2*margin, pageH-2*margin

	pdf.SetLineWidth(0.35)
	pdf.Rect(x0, y0, w0, h0, "")

	rowCustomer := 26.0
	rowDescription := 30.0
	rowBarcode := 60.0
	yDescription := y0 + rowCustomer
	yBarcode := yDescription + rowDescription
	yFooter := yBarcode + rowBarcode
	rowFooter := y0 + h0 - yFooter
	leftW := w0 * 0.62
	rightW := w0 - leftW

	pdf.Line(x0, yDescription, x0+w0, yDescription)
	pdf.Line(x0, yBarcode, x0+w0, yBarcode)
	pdf.Line(x0, yFooter, x0+w0, yFooter)
	pdf.Line(x0+leftW, yFooter, x0+leftW, y0+h0)

	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetFont("Helvetica", "B", fitFontSizeForWidth(pdf, "Helvetica", "B", 34, 18, customer, w0-8))
	pdf.SetXY(x0+4, y0+4)
	pdf.CellFormat(w0-8, rowCustomer-8, customer, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10.5)
	pdf.SetXY(x0+2.5, yDescription+2)
	pdf.CellFormat(w0-5, 5, "Description:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", fitFontSizeForWidth(pdf, "Helvetica", "B", 18, 9.5, description, w0-8))
	pdf.SetXY(x0+4, yDescription+9)
	pdf.CellFormat(w0-8, 10, description, "", 0, "L", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "inventory-barcode-" + strconv.Itoa(pageIndex)
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	imgW := w0 * 0.7
	pdf.ImageOptions(imageName, x0+(w0-imgW)/2, yBarcode+6, imgW, rowBarcode-22, false, opt, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(x0+4, yBarcode+rowBarcode-14)
	pdf.CellFormat(w0-8, 10, stock, "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	lines := []string{
		"Location: " + location,
		"Inbound Ref: " + reference,
		"Inbound Date: " + inbound,
		"Printed: " + printedAt.Format("02/01/2006"),
	}
	for i, line := range lines {
		pdf.SetXY(x0+4, yFooter+4+float64(i)*8)
		pdf.CellFormat(leftW-8, 7, line, "", 0, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10.5)
	pdf.SetXY(x0+leftW+2.5, yFooter+2)
	pdf.CellFormat(rightW-5, 5, "QTY", "", 0, "L", false, 0, "")
	qty := strconv.Itoa(label.Quantity)
	pdf.SetFont("Helvetica", "B", fitFontSizeForWidth(pdf, "Helvetica", "B", 72, 32, qty, rightW-10))
	pdf.SetXY(x0+leftW+4, yFooter+6)
	pdf.CellFormat(rightW-8, rowFooter-10, qty, "", 0, "C", false, 0, "")
	return nil
}

func fitFontSizeForWidth(pdf *gofpdf.Fpdf, family, style string, base, min float64, text string, maxWidth float64) float64 {
	if maxWidth <= 0 {
		return min
	}
	size := base
	pdf.SetFont(family, style, size)
	for size > min && pdf.GetStringWidth(text) > maxWidth {
		size -= 0.5
		pdf.SetFont(family, style, size)
	}
	return size
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, toNRGBA(scaled)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)
	return dst
}
