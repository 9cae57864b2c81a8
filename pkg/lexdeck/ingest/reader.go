package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/lexdeck/pkg/lexdeck/card"
	"github.com/cognicore/lexdeck/pkg/lexdeck/internalerr"
)

// RowReader streams raw rows from one input file, one record at a time.
type RowReader interface {
	// Next returns the next row, or io.EOF at the end of the file. Any
	// other error means the rest of the file is unparseable.
	Next() (card.Row, error)
	Close() error
}

// OpenRows opens a row reader for path based on its extension.
func OpenRows(path string) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return openJSONL(path)
	case ".csv":
		return openCSV(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file %s", internalerr.ErrMalformedInput, path)
	}
}

type jsonlReader struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

func openJSONL(path string) (RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &jsonlReader{f: f, scanner: scanner}, nil
}

func (r *jsonlReader) Next() (card.Row, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if r.line == 1 {
			text = strings.TrimPrefix(text, "\uFEFF")
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		var row card.Row
		if err := json.Unmarshal([]byte(text), &row); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", internalerr.ErrMalformedInput, r.line, err)
		}
		return row, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrMalformedInput, err)
	}
	return nil, io.EOF
}

func (r *jsonlReader) Close() error {
	return r.f.Close()
}

type csvReader struct {
	f      *os.File
	reader *csv.Reader
	header []string
	line   int
}

func openCSV(path string) (RowReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		header = nil
	} else if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: header: %v", internalerr.ErrMalformedInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	return &csvReader{f: f, reader: reader, header: header, line: 1}, nil
}

func (r *csvReader) Next() (card.Row, error) {
	if r.header == nil {
		return nil, io.EOF
	}

	record, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	r.line++
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", internalerr.ErrMalformedInput, r.line, err)
	}

	row := make(card.Row, len(r.header))
	for i, name := range r.header {
		if i < len(record) {
			row[name] = record[i]
		}
	}
	return row, nil
}

func (r *csvReader) Close() error {
	return r.f.Close()
}
