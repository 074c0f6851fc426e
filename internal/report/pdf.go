package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"bakano/internal/core"
)

const (
	colName     = 60.0
	colPayment  = 28.0
	colAbsences = 22.0
	rowHeight   = 8.0
)

// RenderPDF writes the monthly report for every group as one landscape
// A4 document, one table per group, matching the printed layout the
// attendance sheets are photographed from.
func RenderPDF(w io.Writer, groups []*core.Group, monthKey string, warnLimit int) error {
	if _, err := core.ParseMonthKey(monthKey); err != nil {
		return err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	for _, g := range groups {
		table, err := BuildMonthlyTable(g, monthKey, warnLimit)
		if err != nil {
			return fmt.Errorf("group %q: %w", g.Name, err)
		}
		renderTable(pdf, table)
	}
	if len(groups) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 10, "No groups.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func renderTable(pdf *gofpdf.Fpdf, table MonthlyTable) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	title := fmt.Sprintf("%s  -  %s", table.GroupName, table.Month.Format("January 2006"))
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	dateW := 0.0
	if n := len(table.SessionDates); n > 0 {
		dateW = (usable - colName - colPayment - colAbsences) / float64(n)
	}

	// Header row.
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(colName, rowHeight, "Student", "1", 0, "L", true, 0, "")
	for _, d := range table.SessionDates {
		pdf.CellFormat(dateW, rowHeight, d.Format("02/01"), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(colPayment, rowHeight, "Payment", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colAbsences, rowHeight, "Absences", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range table.Rows {
		pdf.CellFormat(colName, rowHeight, row.Name, "1", 0, "L", false, 0, "")
		for _, mark := range row.Marks {
			pdf.CellFormat(dateW, rowHeight, mark, "1", 0, "C", false, 0, "")
		}
		pdf.CellFormat(colPayment, rowHeight, string(row.Payment), "1", 0, "C", false, 0, "")
		absences := fmt.Sprintf("%d", row.Absences)
		if row.Flagged {
			absences += " !"
		}
		pdf.CellFormat(colAbsences, rowHeight, absences, "1", 1, "C", false, 0, "")
	}
	if len(table.Rows) == 0 {
		pdf.CellFormat(usable, rowHeight, "No students this month.", "1", 1, "L", false, 0, "")
	}

	// Totals line under the table.
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 10)
	totals := fmt.Sprintf("Collected: %s    Outstanding: %s    Potential: %s",
		table.Summary.TotalPaid.Format(), table.Summary.TotalUnpaid.Format(), table.Summary.PotentialRevenue.Format())
	pdf.CellFormat(0, 8, totals, "", 1, "L", false, 0, "")
}
