package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/iterenrich/pkg/enrichment"
	"github.com/matzehuels/iterenrich/pkg/iterative"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleTableCell   = lipgloss.NewStyle().Padding(0, 1)
	styleFailedCell  = styleTableCell.Foreground(colorRed)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints analysis statistics on a single line.
func printStats(libraries, records, cacheHits int, elapsed time.Duration) {
	parts := []string{
		fmt.Sprintf("%d libraries", libraries),
		fmt.Sprintf("%d records", records),
	}

	status := iconFresh
	statusStyle := styleComputed
	switch {
	case cacheHits == libraries && libraries > 0:
		status = iconCached
		statusStyle = styleCached
	case cacheHits > 0:
		status = fmt.Sprintf("%d/%d %s", cacheHits, libraries, iconCached)
		statusStyle = styleCached
	}
	parts = append(parts, elapsed.Round(time.Millisecond).String())

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Println(line)
}

// =============================================================================
// Tables
// =============================================================================

// enrichmentTable summarizes single-pass results, one row per library.
func enrichmentTable(results []*enrichment.Result) string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		row := []string{res.Library, string(res.Status), strconv.Itoa(res.TermsTested), "", "", ""}
		if top, ok := res.Top(1); ok {
			row[3] = top.Term
			row[4] = formatP(top.PValue)
			row[5] = formatP(top.FDR)
		}
		rows = append(rows, row)
	}
	return renderTable([]string{"Library", "Status", "Terms", "Top term", "P-value", "FDR"}, rows,
		func(row int) bool { return results[row].Failed() })
}

// iterationTable lists the removed terms of iterative runs.
func iterationTable(runs []*iterative.Run) string {
	var (
		rows   [][]string
		failed []bool
	)
	for _, run := range runs {
		bad := !run.StopReason.Clean()
		if len(run.Records) == 0 {
			rows = append(rows, []string{run.Library, "", "—", "", "", string(run.StopReason)})
			failed = append(failed, bad)
			continue
		}
		for i, rec := range run.Records {
			stop := ""
			if i == len(run.Records)-1 {
				stop = string(run.StopReason)
			}
			rows = append(rows, []string{
				run.Library,
				strconv.Itoa(rec.Iteration),
				rec.Term,
				formatP(rec.PValue),
				strings.Join(rec.Genes, ", "),
				stop,
			})
			failed = append(failed, bad)
		}
	}
	return renderTable([]string{"Library", "#", "Term", "P-value", "Genes", "Stop"}, rows,
		func(row int) bool { return failed[row] })
}

func renderTable(headers []string, rows [][]string, failed func(row int) bool) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleTableHeader.Padding(0, 1)
			case failed(row):
				return styleFailedCell
			}
			return styleTableCell
		}).
		Render()
}

func formatP(p float64) string {
	return strconv.FormatFloat(p, 'e', 2, 64)
}
