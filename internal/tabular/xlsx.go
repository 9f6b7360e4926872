package tabular

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Publicaties"

// WriteXLSX writes a single-sheet workbook with a header row.
func WriteXLSX(w io.Writer, pubs []model.Publication) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "tabular: add sheet")
	}

	cols := Columns(pubs)
	addRow(sheet, cols)
	for _, p := range pubs {
		addRow(sheet, Row(p, cols))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "tabular: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// ReadXLSX reads publications from the first sheet of the workbook at path,
// or from sheetName when set. The first row is the header; rows without a
// url are kept so the merge step can report and drop them.
func ReadXLSX(path, sheetName string) ([]model.Publication, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	header := rowStrings(sheet.Rows[0])
	pubs := make([]model.Publication, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		cells := rowStrings(row)
		if blankRow(cells) {
			continue
		}
		p, err := FromRecord(header, cells)
		if err != nil {
			zap.L().Warn("tabular: skipping unreadable row", zap.String("path", path), zap.Int("row", i+2), zap.Error(err))
			continue
		}
		pubs = append(pubs, p)
	}
	return pubs, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("tabular: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("tabular: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = c.String()
	}
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
