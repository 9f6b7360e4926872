package tabular

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pubenrich/internal/model"
)

// WriteCSV writes a header row and one row per publication.
func WriteCSV(w io.Writer, pubs []model.Publication) error {
	cols := Columns(pubs)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return eris.Wrap(err, "tabular: write csv header")
	}
	for _, p := range pubs {
		if err := cw.Write(Row(p, cols)); err != nil {
			return eris.Wrap(err, "tabular: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "tabular: flush csv")
	}
	return nil
}
