package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/rulescan/internal/model"
)

func TestReadLines(t *testing.T) {
	in := `# grocery
milk, bread

beer;diapers
cheese,cheese , soda
`
	rows, err := ReadLines(strings.NewReader(in), "")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	ts := model.NewTransactionSet("lines", rows)
	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, model.ItemSet{"bread", "milk"}, ts.Baskets[0])
	assert.Equal(t, model.ItemSet{"beer;diapers"}, ts.Baskets[1])
	assert.Equal(t, model.ItemSet{"cheese", "soda"}, ts.Baskets[2])
}

func TestReadLines_CustomDelimiter(t *testing.T) {
	rows, err := ReadLines(strings.NewReader("beer;diapers\n"), ";")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"beer", "diapers"}}, rows)
}

func TestReadCSV_RaggedWithHeader(t *testing.T) {
	in := "item1,item2,item3\nmilk,bread,\n\"ice cream\",candy,meat\n"
	rows, err := ReadCSV(strings.NewReader(in), true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ts := model.NewTransactionSet("csv", rows)
	assert.Equal(t, model.ItemSet{"bread", "milk"}, ts.Baskets[0])
	assert.Equal(t, model.ItemSet{"candy", "ice cream", "meat"}, ts.Baskets[1])
}

func TestReadHTMLTable(t *testing.T) {
	in := `<html><body>
<table>
  <tr><th>a</th><th>b</th></tr>
  <tr><td>milk</td><td> bread </td></tr>
  <tr><td>soda</td><td><b>chips</b></td></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`
	rows, err := ReadHTMLTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"milk", "bread"}, {"soda", "chips"}}, rows)
}

func TestReadHTMLTable_NoTable(t *testing.T) {
	_, err := ReadHTMLTable(strings.NewReader("<p>nothing</p>"))
	assert.Error(t, err)
}

func TestLoader_Samples(t *testing.T) {
	l := NewLoader(model.SourceConfig{SyntheticBaskets: 50, SyntheticSeed: 7}, nil)

	grocery, err := l.Load(context.Background(), InputGrocery)
	require.NoError(t, err)
	assert.Equal(t, 6, grocery.Len())
	assert.Equal(t, 1.0, grocery.Support(model.NewItemSet("milk")))

	a, err := l.Load(context.Background(), InputSynthetic)
	require.NoError(t, err)
	b, err := l.Load(context.Background(), InputSynthetic)
	require.NoError(t, err)
	assert.Equal(t, 50, a.Len())
	assert.Equal(t, a.Baskets, b.Baskets, "same seed must give the same baskets")
}

func TestSynthetic_PlantedPattern(t *testing.T) {
	ts := Synthetic(2000, 12346)
	chips := ts.Support(model.NewItemSet("chips"))
	both := ts.Support(model.NewItemSet("chips", "salsa"))
	require.Greater(t, chips, 0.0)
	assert.Greater(t, both/chips, 0.5, "salsa should follow chips most of the time")
}

func TestLoader_Files(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "baskets.txt")
	require.NoError(t, os.WriteFile(txt, []byte("milk,bread\nsoda\n"), 0o644))

	xlsx := filepath.Join(dir, "baskets.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"milk", "bread"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"beer", "diapers", "chips"}))
	require.NoError(t, f.SaveAs(xlsx))
	require.NoError(t, f.Close())

	l := NewLoader(model.SourceConfig{}, nil)

	ts, err := l.Load(context.Background(), txt)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Len())

	ts, err = l.Load(context.Background(), xlsx)
	require.NoError(t, err)
	require.Equal(t, 2, ts.Len())
	assert.Equal(t, model.ItemSet{"beer", "chips", "diapers"}, ts.Baskets[1])
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(model.SourceConfig{}, nil)

	_, err := l.Load(context.Background(), filepath.Join(dir, "data.parquet"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n\n"), 0o644))
	_, err = l.Load(context.Background(), empty)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = l.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	_, err = l.Load(context.Background(), "https://example.com/baskets.csv")
	assert.Error(t, err, "URL inputs need a fetcher")
}

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{"", FormatLines},
		{".TXT", FormatLines},
		{".csv", FormatCSV},
		{".xlsx", FormatXLSX},
		{".htm", FormatHTML},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := FormatFromExt(tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadList(t *testing.T) {
	p := filepath.Join(t.TempDir(), "inputs.txt")
	require.NoError(t, os.WriteFile(p, []byte("a.csv\n# skip\n\nb.csv\na.csv\n"), 0o644))

	entries, err := ReadList(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, entries)
}
