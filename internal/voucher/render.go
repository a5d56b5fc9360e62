package voucher

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PDFRenderer lays out a voucher as a one-page A4 PDF.
type PDFRenderer struct {
	printer *message.Printer
}

// NewPDFRenderer returns a renderer formatting amounts for Spanish readers.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{printer: message.NewPrinter(language.Spanish)}
}

// FormatAmount renders a peso amount with thousands separators.
func (r *PDFRenderer) FormatAmount(v decimal.Decimal) string {
	return r.printer.Sprintf("$ %d", v.Round(0).IntPart())
}

// Render writes doc as PDF to w.
func (r *PDFRenderer) Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(doc.CompanyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if doc.CompanyTaxID != "" {
		pdf.CellFormat(contentW, 5, tr("NIT "+doc.CompanyTaxID), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(contentW, 5, tr("Comprobante de pago de nómina"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, tr(doc.PeriodLabel), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Del %s al %s",
		doc.StartDate.Format("02/01/2006"), doc.EndDate.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Empleado: %s (%s)", doc.EmployeeName, doc.DocumentNumber)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Días trabajados: %d", doc.Record.WorkedDays)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	rec := doc.Record
	salary := rec.GrossPay.Sub(rec.EventsEarnings).Sub(rec.TransportAllowance)
	otherDeductions := rec.TotalDeductions.Sub(rec.HealthDeduction).Sub(rec.PensionDeduction)
	labelW := contentW * 0.65
	valueW := contentW - labelW

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(labelW, 6, tr(title), "B", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, "", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
	}
	line := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, r.FormatAmount(v), "", 1, "R", false, 0, "")
	}

	section("Devengados")
	line("Salario", salary)
	if rec.TransportAllowance.IsPositive() {
		line("Auxilio de transporte", rec.TransportAllowance)
	}
	if rec.EventsEarnings.IsPositive() {
		line("Novedades", rec.EventsEarnings)
	}
	line("Total devengado", rec.GrossPay)
	pdf.Ln(2)

	section("Deducciones")
	line("Salud", rec.HealthDeduction)
	line("Pensión", rec.PensionDeduction)
	if otherDeductions.IsPositive() {
		line("Otras deducciones", otherDeductions)
	}
	line("Total deducciones", rec.TotalDeductions)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelW, 7, "NETO A PAGAR", "T", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 7, r.FormatAmount(rec.NetPay()), "T", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, tr(fmt.Sprintf("IBC %s", r.FormatAmount(rec.IBC))), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write: %w", err)
	}
	return nil
}
