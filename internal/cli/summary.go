package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/bean-flow/internal/importer"
)

// RenderPreview prints a result in ledger syntax: the accepted transactions
// followed by the balance assertion.
func RenderPreview(res *importer.Result) string {
	var b strings.Builder
	for _, txn := range res.Transactions {
		b.WriteString(txn.String())
		b.WriteString("\n")
	}
	if res.Balance != nil {
		b.WriteString(res.Balance.String())
		b.WriteString("\n")
	}
	return b.String()
}

// Failure is a statement or file that was skipped because it could not be
// read or imported.
type Failure struct {
	Err    error
	Source string
}

// RenderImportSummary renders a per-statement table of accepted and
// duplicate counts with a total row, followed by any failures.
func RenderImportSummary(results []*importer.Result, failures []Failure) string {
	headers := []string{"Source", "Account", "Accepted", "Duplicates"}
	rows := make([][]string, 0, len(results)+1)

	var accepted, duplicates int
	for _, res := range results {
		rows = append(rows, []string{
			res.Source,
			res.Account,
			strconv.Itoa(len(res.Transactions)),
			strconv.Itoa(res.Duplicates),
		})
		accepted += len(res.Transactions)
		duplicates += res.Duplicates
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{render(TableHeaderStyle, headers)}
	for _, row := range rows {
		lines = append(lines, render(TableCellStyle, row))
	}

	summary := fmt.Sprintf("%d statement(s), %d accepted, %d duplicate(s) skipped", len(results), accepted, duplicates)
	switch {
	case len(failures) > 0:
		summary = FormatWarning(fmt.Sprintf("%s, %d failed", summary, len(failures)))
	case accepted > 0:
		summary = FormatSuccess(summary)
	default:
		summary = FormatInfo(summary)
	}
	lines = append(lines, "", summary)

	for _, f := range failures {
		lines = append(lines, FormatError(fmt.Sprintf("%s: %v", f.Source, f.Err)))
	}

	return RenderBox("Import summary", strings.Join(lines, "\n"))
}
