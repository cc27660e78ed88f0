// Package source loads transaction sets from files, URLs and built-in samples.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ppiankov/rulescan/internal/model"
)

var (
	// ErrUnsupportedFormat is returned for a dataset format with no reader
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrEmptyDataset is returned when a dataset yields no baskets
	ErrEmptyDataset = errors.New("dataset has no baskets")
)

// Format names a dataset encoding
type Format string

const (
	FormatLines Format = "lines"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatHTML  Format = "html"
)

const (
	InputGrocery   = "sample:grocery"
	InputSynthetic = "synthetic"
)

// Loader turns an input reference into a TransactionSet
type Loader struct {
	cfg     model.SourceConfig
	fetcher *Fetcher
}

// NewLoader creates a loader. fetcher may be nil, in which case URL inputs fail.
func NewLoader(cfg model.SourceConfig, fetcher *Fetcher) *Loader {
	return &Loader{cfg: cfg, fetcher: fetcher}
}

// Load resolves input, which is one of: "sample:grocery", "synthetic",
// an http(s) URL, or a file path
func (l *Loader) Load(ctx context.Context, input string) (*model.TransactionSet, error) {
	var ts *model.TransactionSet

	switch {
	case input == InputGrocery:
		ts = Grocery()
	case input == InputSynthetic:
		n := l.cfg.SyntheticBaskets
		if n <= 0 {
			n = 500
		}
		ts = Synthetic(n, l.cfg.SyntheticSeed)
	case isURL(input):
		loaded, err := l.loadURL(ctx, input)
		if err != nil {
			return nil, err
		}
		ts = loaded
	default:
		loaded, err := l.loadFile(input)
		if err != nil {
			return nil, err
		}
		ts = loaded
	}

	if ts.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, input)
	}
	return ts, nil
}

// Parse decodes raw dataset bytes in the given format
func (l *Loader) Parse(name string, format Format, r io.Reader) (*model.TransactionSet, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatLines:
		rows, err = ReadLines(r, l.cfg.Delimiter)
	case FormatCSV:
		rows, err = ReadCSV(r, l.cfg.SkipHeader)
	case FormatXLSX:
		rows, err = ReadXLSX(r, l.cfg.Sheet, l.cfg.SkipHeader)
	case FormatHTML:
		rows, err = ReadHTMLTable(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return model.NewTransactionSet(name, rows), nil
}

func (l *Loader) loadFile(filePath string) (*model.TransactionSet, error) {
	format, err := FormatFromExt(filepath.Ext(filePath))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Parse(filePath, format, f)
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*model.TransactionSet, error) {
	if l.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", rawURL)
	}

	res, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	format, err := formatForResponse(res)
	if err != nil {
		return nil, err
	}
	return l.Parse(rawURL, format, bytes.NewReader(res.Body))
}

// FormatFromExt maps a file extension to a format; no extension means lines
func FormatFromExt(ext string) (Format, error) {
	switch strings.ToLower(ext) {
	case "", ".txt", ".basket", ".baskets":
		return FormatLines, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// formatForResponse prefers the URL's extension, then the Content-Type
func formatForResponse(res *FetchResult) (Format, error) {
	if u, err := url.Parse(res.FinalURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			if f, err := FormatFromExt(ext); err == nil {
				return f, nil
			}
		}
	}

	mediaType, _, err := mime.ParseMediaType(res.ContentType)
	if err != nil {
		return FormatLines, nil
	}
	switch mediaType {
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "text/html", "application/xhtml+xml":
		return FormatHTML, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	case "text/plain":
		return FormatLines, nil
	default:
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, mediaType)
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
