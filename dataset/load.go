package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aouyang1/go-olsdiag/errs"
	"github.com/xuri/excelize/v2"
)

// Format of a tabular source
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnknownFormat = errors.New("unable to determine source format")
	ErrFetch         = fmt.Errorf("unable to fetch remote source, %w", errs.ErrData)
	ErrRead          = fmt.Errorf("unable to read source, %w", errs.ErrData)
	ErrUnknownSheet  = fmt.Errorf("unknown sheet, %w", errs.ErrData)
)

// LoadOptions configures Load
type LoadOptions struct {
	ParseOptions

	// Format of the source, detected from the location when empty
	Format Format

	// Sheet of an xlsx workbook, defaults to the first sheet
	Sheet string

	// Client fetches remote sources, defaults to http.DefaultClient
	Client *http.Client
}

// Load reads a csv or xlsx table from a local path or an http(s) URL and parses it
func Load(ctx context.Context, location string, opt *LoadOptions) (*Dataset, error) {
	if opt == nil {
		opt = &LoadOptions{}
	}
	format := opt.Format
	if format == "" {
		var err error
		if format, err = detectFormat(location); err != nil {
			return nil, err
		}
	}

	src, err := open(ctx, location, opt.Client)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var rows [][]string
	switch format {
	case FormatCSV:
		rows, err = readCSV(src)
	case FormatXLSX:
		rows, err = readXLSX(src, opt.Sheet)
	default:
		return nil, fmt.Errorf("%q, %w", format, ErrUnknownFormat)
	}
	if err != nil {
		return nil, err
	}

	ds, err := Parse(rows, &opt.ParseOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s, %w", location, err)
	}
	return ds, nil
}

// detectFormat reads the format from the file extension or, for exported spreadsheets, from the
// format query parameter
func detectFormat(location string) (Format, error) {
	p := location
	if u, err := url.Parse(location); err == nil && isRemote(u) {
		if f := u.Query().Get("format"); f != "" {
			p = "." + f
		} else {
			p = u.Path
		}
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%s, %w", location, ErrUnknownFormat)
}

func isRemote(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}

func open(ctx context.Context, location string, client *http.Client) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil || !isRemote(u) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("%s, %w", err.Error(), ErrRead)
		}
		return f, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrFetch)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrFetch)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d from %s, %w", resp.StatusCode, location, ErrFetch)
	}
	return resp.Body, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv %s, %w", err.Error(), ErrRead)
	}
	return rows, nil
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx %s, %w", err.Error(), ErrRead)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets, %w", ErrUnknownSheet)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s %s, %w", sheet, err.Error(), ErrUnknownSheet)
	}
	return rows, nil
}
