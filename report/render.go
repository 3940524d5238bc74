package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/rtorder/results"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

// Excel refuses longer sheet names.
const maxSheetName = 31

// Sheet is one worksheet of a workbook.
type Sheet struct {
	Name  string
	Table results.Table
}

// WriteXLSX writes the sheets as a workbook. Cells that parse as numbers are
// stored as numbers.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	keepDefault := false

	names := sheetNames(sheets)
	for i, sheet := range sheets {
		name := names[i]
		if strings.EqualFold(name, defaultSheet) {
			keepDefault = true
		}

		index, err := f.NewSheet(name)
		if err != nil {
			return err
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		if err := writeRow(f, name, 1, sheet.Table.Header); err != nil {
			return err
		}
		for r, row := range sheet.Table.Rows {
			if err := writeRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}

	if !keepDefault {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// sheetNames makes the sheet names acceptable to Excel: at most maxSheetName
// characters, none of []:*?/\ and unique regardless of case.
func sheetNames(sheets []Sheet) []string {
	clean := strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_")

	seen := map[string]struct{}{}
	out := make([]string, 0, len(sheets))
	for i, sheet := range sheets {
		base := clean.Replace(sheet.Name)
		if base == "" {
			base = fmt.Sprintf("sheet%d", i+1)
		}

		name := truncateRunes(base, maxSheetName)
		for n := 2; ; n++ {
			if _, exists := seen[strings.ToLower(name)]; !exists {
				break
			}
			suffix := fmt.Sprintf("~%d", n)
			name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = struct{}{}
		out = append(out, name)
	}

	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

func writeRow(f *excelize.File, sheet string, rowID int, cells []string) error {
	for c, cell := range cells {
		name, err := excelize.CoordinatesToCellName(c+1, rowID)
		if err != nil {
			return err
		}

		var value interface{} = cell
		if rowID > 1 {
			if v, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				value = v
			}
		}

		if err := f.SetCellValue(sheet, name, value); err != nil {
			return err
		}
	}

	return nil
}

// PlotMeans renders the group means as a bar chart PNG. Groups with an
// undefined mean are left out.
func PlotMeans(w io.Writer, title string, summaries []Summary) error {
	bars := make([]chart.Value, 0, len(summaries))
	for _, s := range summaries {
		if s.N == 0 {
			continue
		}
		bars = append(bars, chart.Value{Value: s.Mean, Label: s.Label()})
	}
	if len(bars) == 0 {
		return fmt.Errorf("nothing to plot")
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    128 * (len(bars) + 1),
		Height:   512,
		BarWidth: 64,
		Bars:     bars,
	}

	return graph.Render(chart.PNG, w)
}
