package alignment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"KronosAlign/internal/domain/models"
)

// ErrUnsupportedFormat is returned for data files that are not CSV.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ReadCSV reads a header row followed by data rows. Ragged rows are accepted;
// missing cells read as empty.
func ReadCSV(r io.Reader) (RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return RawTable{}, &models.SchemaError{Message: "empty file"}
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return RawTable{Columns: header, Records: records}, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (RawTable, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return RawTable{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return RawTable{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// LoadAndNormalize reads a CSV file and normalizes it into a series.
func (n *Normalizer) LoadAndNormalize(path string) (models.Series, error) {
	raw, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return n.Normalize(raw)
}
