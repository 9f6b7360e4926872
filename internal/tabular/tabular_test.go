package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pubenrich/internal/model"
	"github.com/sells-group/pubenrich/internal/model/modeltest"
)

func samplePubs() []model.Publication {
	full := modeltest.Completed()
	full.Extra = map[string]json.RawMessage{
		"collectie": json.RawMessage(`"Institute of Public Law"`),
		"nested":    json.RawMessage(`{"a":1}`),
	}
	return []model.Publication{full, {URL: "https://x/2", Title: "Tweede, met komma"}}
}

func TestColumns(t *testing.T) {
	cols := Columns(samplePubs())
	assert.Equal(t, "url", cols[0])
	assert.Equal(t, "relevance_score", cols[len(BaseColumns)-1])
	assert.Equal(t, []string{"collectie"}, cols[len(BaseColumns):])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePubs(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}
	assert.Equal(t, "Handhaving", records[1][idx["thema"]])
	assert.Equal(t, "Punt een\nPunt twee", records[1][idx["takeaways"]])
	assert.Equal(t, "7", records[1][idx["relevance_score"]])
	assert.Equal(t, "Institute of Public Law", records[1][idx["collectie"]])
	assert.Equal(t, "Tweede, met komma", records[2][idx["titel"]])
	assert.Equal(t, "", records[2][idx["relevance_score"]])
}

func TestXLSX_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePubs(), FormatXLSX))

	path := filepath.Join(t.TempDir(), "pubs.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadXLSX(path, "")
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := modeltest.Completed()
	assert.Equal(t, want.Theme, got[0].Theme)
	assert.Equal(t, want.Takeaways, got[0].Takeaways)
	assert.Equal(t, want.RelevanceScore, got[0].RelevanceScore)
	coll, ok := got[0].ExtraString("collectie")
	assert.True(t, ok)
	assert.Equal(t, "Institute of Public Law", coll)
	assert.Equal(t, "Tweede, met komma", got[1].Title)

	_, err = ReadXLSX(path, "Missing")
	assert.ErrorContains(t, err, "not found")

	got, err = ReadXLSX(path, SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFromRecord(t *testing.T) {
	p, err := FromRecord(
		[]string{"url", "titel", "relevance_score", "", "collectie", "thema"},
		[]string{" https://x ", "T", "8", "ignored", "IPL"},
	)
	require.NoError(t, err)
	assert.Equal(t, "https://x", p.URL)
	assert.Equal(t, 8, p.RelevanceScore)
	assert.Empty(t, p.Theme)
	coll, _ := p.ExtraString("collectie")
	assert.Equal(t, "IPL", coll)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	assert.Error(t, Write(&bytes.Buffer{}, nil, Format("pdf")))
}
