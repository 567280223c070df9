package trips

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"journal-service/internal/session"
	"journal-service/pkg/validation"
)

var (
	ErrNoData              = errors.New("no data")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// Source labels where a batch came from.
type Source string

const (
	SourceJSONBody Source = "json_body"
	SourceCSVFile  Source = "csv_file"
	SourceJSONFile Source = "json_file"
)

// ParseError reports a payload that could not be turned into records.
type ParseError struct {
	Source Source
	Err    error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// FileUpload is the multipart "file" field of a bulk request.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// Upload is everything a bulk request may carry.
type Upload struct {
	ContentType string
	Body        io.Reader
	File        *FileUpload
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize turns an upload into an ordered batch of records.
//
// A JSON content type wins over any file; otherwise the file suffix picks the
// parser. Read errors are returned as-is so the caller can tell an oversized
// body from bad content.
func Normalize(u Upload) (Source, []*Record, error) {
	switch {
	case isJSONContentType(u.ContentType):
		data, err := readAll(u.Body)
		if err != nil {
			return SourceJSONBody, nil, err
		}
		recs, err := parseJSON(data)
		if err != nil {
			return SourceJSONBody, nil, &ParseError{Source: SourceJSONBody, Err: err}
		}
		return SourceJSONBody, recs, nil

	case u.File != nil:
		var (
			src   Source
			parse func([]byte) ([]*Record, error)
		)
		switch validation.Extension(u.File.Name) {
		case ".csv":
			src, parse = SourceCSVFile, parseCSV
		case ".json":
			src, parse = SourceJSONFile, parseJSONFile
		default:
			return "", nil, ErrUnsupportedFileType
		}
		data, err := readAll(u.File.Content)
		if err != nil {
			return src, nil, err
		}
		recs, err := parse(data)
		if err != nil {
			return src, nil, &ParseError{Source: src, Err: err}
		}
		return src, recs, nil

	default:
		return "", nil, ErrNoData
	}
}

// Stamp sets the owner fields on rec, overwriting any submitted values.
func Stamp(rec *Record, owner session.Identity) {
	rec.Set("user_id", owner.UserID)
	rec.Set("email", owner.Email)
}

func isJSONContentType(ct string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "application/json")
}

func readAll(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func parseJSON(data []byte) ([]*Record, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8 in JSON payload")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty JSON payload")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level JSON value")
	}

	switch t := v.(type) {
	case *Record:
		return []*Record{t}, nil
	case []any:
		recs := make([]*Record, 0, len(t))
		for i, e := range t {
			rec, ok := e.(*Record)
			if !ok {
				return nil, fmt.Errorf("item %d is a JSON %s, expected an object", i, kindOf(e))
			}
			recs = append(recs, rec)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("expected a JSON object or array, got %s", kindOf(v))
	}
}

// parseJSONFile is parseJSON for uploaded files, which editors often save
// with a leading BOM.
func parseJSONFile(data []byte) ([]*Record, error) {
	return parseJSON(bytes.TrimPrefix(data, utf8BOM))
}

func parseCSV(data []byte) ([]*Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8 in CSV file")
	}
	rd := csv.NewReader(bytes.NewReader(data))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true

	header, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var recs []*Record
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) > len(header) {
			line, _ := rd.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(row), len(header))
		}
		rec := NewRecord()
		for i, name := range header {
			if i < len(row) {
				rec.Set(name, row[i])
			} else {
				rec.Set(name, nil)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
