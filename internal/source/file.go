package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dispatchops/api/internal/dispatch"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFile = errors.New("unsupported order file type")

// File reads orders from a static export: a JSON array, a CSV sheet or an
// XLSX workbook, picked by extension.
type File struct {
	Path string
}

func (f File) Fetch(ctx context.Context) ([]dispatch.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open order file")
	}
	defer fh.Close()
	return ReadFile(filepath.Base(f.Path), fh)
}

// ReadFile decodes r according to the extension of name. Uploads go through
// here as well.
func ReadFile(name string, r io.Reader) ([]dispatch.Order, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return DecodeOrders(r)
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	}
	return nil, errors.Wrapf(ErrUnsupportedFile, "%q", name)
}

func ReadCSV(r io.Reader) ([]dispatch.Order, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	raw, err := fromRows(rows)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]dispatch.Order, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	raw, err := fromRows(rows)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}
