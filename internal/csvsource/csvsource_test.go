package csvsource

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogCSV = "Descricao,V.Venda\n" +
	"Widget,10.00\n" +
	"Gadget,5.50\n" +
	"Broken,abc\n" +
	"\"Caneta, azul\",2\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pgzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestReadTable(t *testing.T) {
	in := "\ufeffNome,Produto\nAna,Caneta\nBruno\nCarla,Lápis,extra\n"

	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Nome", "Produto"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"Ana", "Caneta"},
		{"Bruno"},
		{"Carla", "Lápis", "extra"},
	}, tbl.Rows)
}

func TestReadTable_Latin1(t *testing.T) {
	in := "Nome,Produto\n" +
		"Jo\xe3o,P\xe3o de a\xe7\xfacar\n" +
		"Ana,\x93Caf\xe9\x94\n" +
		"Zo\u00eb,Caneta\n"

	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"João", "Pão de açúcar"},
		{"Ana", "“Café”"},
		{"Zoë", "Caneta"},
	}, tbl.Rows)
}

func TestReadTable_Gzip(t *testing.T) {
	tbl, err := ReadTable(bytes.NewReader(gzipBytes(t, "a,b\n1,2\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.Equal(t, [][]string{{"1", "2"}}, tbl.Rows)
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""))
	require.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	for name, data := range map[string][]byte{
		"plain": []byte(catalogCSV),
		"gzip":  gzipBytes(t, catalogCSV),
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "vendas.csv", data)

			c, rep, err := LoadCatalog(path)
			require.NoError(t, err)
			assert.Equal(t, 4, rep.Rows)
			assert.Equal(t, 3, c.Len())
			assert.Equal(t, 1, rep.BadPrice)

			p, ok := c.Lookup("Caneta, azul")
			require.True(t, ok)
			assert.True(t, decimal.NewFromInt(2).Equal(p.Price))
		})
	}
}

func TestLoadCatalog_ShortRecordDropped(t *testing.T) {
	path := writeFile(t, "vendas.csv", []byte("d,v\nLonely\nOk,1\n"))

	c, rep, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, rep.Dropped())
}

func TestLoadCatalog_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	_, _, err := LoadCatalog(path)

	var dlErr *DataLoadError
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, path, dlErr.Path)
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCatalog_Malformed(t *testing.T) {
	path := writeFile(t, "vendas.csv", []byte(""))

	_, _, err := LoadCatalog(path)

	var dlErr *DataLoadError
	require.ErrorAs(t, err, &dlErr)
	assert.NotErrorIs(t, err, ErrSourceMissing)
}
