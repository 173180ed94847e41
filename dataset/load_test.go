package dataset

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aouyang1/go-olsdiag/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParse(t *testing.T) {
	rows := [][]string{
		{"Year", "GDP", "CPI", "Notes"},
		{"1972 [YR1972]", "3.5", "..", "x"},
		{"1970 [YR1970]", "1.5", "10", "y"},
		{"1971 [YR1971]", " 2.5 ", "", ""},
		{"", "", "", ""},
	}
	ds, err := Parse(rows, &ParseOptions{DropColumns: []string{"Notes"}})
	require.Nil(t, err)
	assert.Equal(t, []int{1970, 1971, 1972}, ds.Index())
	assert.Equal(t, []string{"GDP", "CPI"}, ds.Columns())

	gdp, err := ds.Column("GDP")
	require.Nil(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, gdp)

	cpi, err := ds.Column("CPI")
	require.Nil(t, err)
	assert.Equal(t, 10.0, cpi[0])
	assert.True(t, math.IsNaN(cpi[1]))
	assert.True(t, math.IsNaN(cpi[2]))
}

func TestParseIndexColumn(t *testing.T) {
	rows := [][]string{
		{"GDP", "Year"},
		{"1.5", "2001"},
		{"2.5", "2000"},
	}
	ds, err := Parse(rows, &ParseOptions{IndexColumn: "Year"})
	require.Nil(t, err)
	assert.Equal(t, []int{2000, 2001}, ds.Index())
	assert.Equal(t, []string{"GDP"}, ds.Columns())

	_, err = Parse(rows, &ParseOptions{IndexColumn: "Date"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestParseMissingTokens(t *testing.T) {
	rows := [][]string{
		{"Year", "GDP"},
		{"2000", "NA"},
		{"2001", "1"},
	}
	_, err := Parse(rows, nil)
	assert.ErrorIs(t, err, ErrParseValue)

	ds, err := Parse(rows, &ParseOptions{MissingTokens: []string{"NA"}})
	require.Nil(t, err)
	gdp, err := ds.Column("GDP")
	require.Nil(t, err)
	assert.True(t, math.IsNaN(gdp[0]))
}

func TestParseErrors(t *testing.T) {
	testData := map[string]struct {
		rows [][]string
		err  error
		msg  string
	}{
		"header only": {
			rows: [][]string{{"Year", "GDP"}},
			err:  ErrNoHeader,
		},
		"bad value": {
			rows: [][]string{{"Year", "GDP"}, {"2000", "1"}, {"2001", "abc"}},
			err:  ErrParseValue,
			msg:  "column GDP row 3",
		},
		"bad index": {
			rows: [][]string{{"Year", "GDP"}, {"Total", "1"}},
			err:  ErrParseIndex,
			msg:  "row 2",
		},
		"duplicate index": {
			rows: [][]string{{"Year", "GDP"}, {"2000", "1"}, {"2000 [YR2000]", "2"}},
			err:  ErrDuplicateIndex,
		},
		"only blank rows": {
			rows: [][]string{{"Year", "GDP"}, {"", ""}},
			err:  ErrNoData,
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(td.rows, nil)
			assert.ErrorIs(t, err, td.err)
			assert.ErrorIs(t, err, errs.ErrData)
			if td.msg != "" {
				assert.ErrorContains(t, err, td.msg)
			}
		})
	}
}

func worldBankRows() [][]string {
	return [][]string{
		{"Country Name", "Country Code", "Series Name", "Series Code", "1990 [YR1990]", "1991 [YR1991]", "1992 [YR1992]"},
		{"Turkiye", "TUR", "GDP growth (annual %)", "NY.GDP.MKTP.KD.ZG", "9.3", "0.7", "5.0"},
		{"Turkiye", "TUR", "Inflation, consumer prices (annual %)", "FP.CPI.TOTL.ZG", "..", "66.0", "70.1"},
		{},
		{"Data from database: World Development Indicators"},
	}
}

func TestParseTranspose(t *testing.T) {
	ds, err := Parse(worldBankRows(), &ParseOptions{
		Transpose:   true,
		LabelColumn: "Series Name",
		DropColumns: []string{"Country Name", "Country Code", "Series Code"},
	})
	require.Nil(t, err)
	assert.Equal(t, []int{1990, 1991, 1992}, ds.Index())
	assert.Equal(t, []string{"GDP growth (annual %)", "Inflation, consumer prices (annual %)"}, ds.Columns())

	cpi, err := ds.Column("Inflation, consumer prices (annual %)")
	require.Nil(t, err)
	assert.True(t, math.IsNaN(cpi[0]))
	assert.Equal(t, []float64{66.0, 70.1}, cpi[1:])

	_, err = Parse(worldBankRows(), &ParseOptions{Transpose: true, LabelColumn: "Indicator"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

const sampleCSV = "year,gdp,cpi\n1970,1.5,10\n1971,2.5,..\n1972,3.5,12\n"

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macro.csv")
	require.Nil(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	ds, err := Load(context.Background(), path, nil)
	require.Nil(t, err)
	assert.Equal(t, []int{1970, 1971, 1972}, ds.Index())
	assert.Equal(t, []string{"gdp", "cpi"}, ds.Columns())

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	assert.ErrorIs(t, err, ErrRead)
}

func writeWorkbook(t *testing.T, sheet string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.Nil(t, err)
	}
	for r, row := range rows {
		for c, val := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.Nil(t, err)
			require.Nil(t, f.SetCellValue(sheet, name, val))
		}
	}
	buf, err := f.WriteToBuffer()
	require.Nil(t, err)
	return buf.Bytes()
}

func TestLoadXLSXRemote(t *testing.T) {
	book := writeWorkbook(t, "Sheet1", worldBankRows())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/macro.xlsx", "/export":
			w.Write(book)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	opt := &LoadOptions{
		ParseOptions: ParseOptions{
			Transpose:   true,
			LabelColumn: "Series Name",
			DropColumns: []string{"Country Name", "Country Code", "Series Code"},
		},
	}

	testData := map[string]struct {
		location string
		opt      *LoadOptions
		err      error
	}{
		"extension":      {srv.URL + "/macro.xlsx", opt, nil},
		"format query":   {srv.URL + "/export?format=xlsx", opt, nil},
		"explicit":       {srv.URL + "/export", &LoadOptions{ParseOptions: opt.ParseOptions, Format: FormatXLSX}, nil},
		"unknown format": {srv.URL + "/export", opt, ErrUnknownFormat},
		"not found":      {srv.URL + "/missing.xlsx", opt, ErrFetch},
		"unknown sheet":  {srv.URL + "/macro.xlsx", &LoadOptions{ParseOptions: opt.ParseOptions, Sheet: "Data"}, ErrUnknownSheet},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			ds, err := Load(context.Background(), td.location, td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, []int{1990, 1991, 1992}, ds.Index())
			gdp, err := ds.Column("GDP growth (annual %)")
			require.Nil(t, err)
			assert.Equal(t, []float64{9.3, 0.7, 5.0}, gdp)
		})
	}
}

func TestLoadXLSXSheet(t *testing.T) {
	rows := [][]string{{"year", "gdp"}, {"2000", "1"}, {"2001", "2"}}
	path := filepath.Join(t.TempDir(), "macro.xlsx")
	require.Nil(t, os.WriteFile(path, writeWorkbook(t, "Data", rows), 0o644))

	ds, err := Load(context.Background(), path, &LoadOptions{Sheet: "Data"})
	require.Nil(t, err)
	assert.Equal(t, []int{2000, 2001}, ds.Index())
}

func TestLoadCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleCSV)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, srv.URL+"/macro.csv", nil)
	assert.ErrorIs(t, err, ErrFetch)

	ds, err := Load(context.Background(), srv.URL+"/macro.csv", nil)
	require.Nil(t, err)
	assert.Equal(t, 3, ds.Len())
}
