// Package export renders project reports as spreadsheets.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetName = 31

// WriteReportsWorkbook writes one sheet per project axis. Each row is one
// report; columns are the period, the declared indicators, then any derived
// fields found in that axis' reports.
func WriteReportsWorkbook(w io.Writer, proj *project.Project, reports []report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	byAxis := make(map[string][]report.Report)
	for _, rep := range reports {
		byAxis[rep.Axis] = append(byAxis[rep.Axis], rep)
	}

	used := make(map[string]bool)
	for i, axis := range proj.Axes {
		name := sheetName(axis.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("naming sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", name, err)
		}
		if err := writeAxis(f, name, proj.Cadence, axis, byAxis[axis.Name]); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeAxis(f *excelize.File, sheet string, cadence project.Cadence, axis project.Axis, reports []report.Report) error {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Period.Year != reports[j].Period.Year {
			return reports[i].Period.Year < reports[j].Period.Year
		}
		return reports[i].Period.Index < reports[j].Period.Index
	})

	var derivedNames []string
	seen := make(map[string]bool)
	for _, rep := range reports {
		for _, d := range rep.Derived {
			if !seen[d.Name] {
				seen[d.Name] = true
				derivedNames = append(derivedNames, d.Name)
			}
		}
	}
	sort.Strings(derivedNames)

	header := []any{"Period", "Year"}
	for _, ind := range axis.Indicators {
		header = append(header, ind.Name)
	}
	for _, name := range derivedNames {
		header = append(header, name)
	}
	header = append(header, "Submitted by", "Submitted at")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header of %q: %w", sheet, err)
	}

	for i, rep := range reports {
		row := []any{cadence.Label(rep.Period.Index), rep.Period.Year}
		for _, ind := range axis.Indicators {
			row = append(row, cellValue(rep, ind.Name))
		}
		for _, name := range derivedNames {
			row = append(row, derivedValue(rep, name))
		}
		row = append(row, rep.SubmittedBy, rep.SubmittedAt.UTC().Format("2006-01-02 15:04:05"))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d of %q: %w", i+2, sheet, err)
		}
	}
	return nil
}

func cellValue(rep report.Report, name string) any {
	v, ok := rep.Value(name)
	if !ok {
		return ""
	}
	if v.Type.Numeric() {
		return v.Number.InexactFloat64()
	}
	return v.Text
}

func derivedValue(rep report.Report, name string) any {
	for _, d := range rep.Derived {
		if d.Name == name {
			return d.Value.InexactFloat64()
		}
	}
	return ""
}

// sheetName makes an axis name acceptable to Excel: at most 31 characters,
// none of []:*?/\ and unique within the workbook.
func sheetName(axis string, index int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(axis))
	if name == "" {
		name = fmt.Sprintf("Axis %d", index+1)
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	base := name
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		runes := []rune(base)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}
