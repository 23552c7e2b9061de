package core

// reader.go parses CSV and Excel source files into a raw Frame.
//
// CSV bytes are decoded by trying each Encoding in order. UTF-8 must be
// strictly valid; single-byte code pages fail when the input contains a
// byte the code page leaves undefined. The first encoding that succeeds wins.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/gradebook/internal/logging"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// SupportedExtensions lists the accepted source file extensions.
var SupportedExtensions = []string{".csv", ".xlsx", ".xls"}

// IsSupportedFile reports whether the file name has a supported extension.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Encoding decodes raw CSV bytes to UTF-8.
type Encoding struct {
	Name   string
	Decode func([]byte) ([]byte, bool)
}

// DefaultEncodings is the fallback order for CSV input.
var DefaultEncodings = []Encoding{
	{Name: "utf-8", Decode: decodeUTF8},
	{Name: "windows-1251", Decode: decodeCharmap(charmap.Windows1251)},
	{Name: "iso-8859-1", Decode: decodeCharmap(charmap.ISO8859_1)},
}

func decodeUTF8(b []byte) ([]byte, bool) {
	return b, utf8.Valid(b)
}

func decodeCharmap(cm *charmap.Charmap) func([]byte) ([]byte, bool) {
	return func(b []byte) ([]byte, bool) {
		out, err := cm.NewDecoder().Bytes(b)
		if err != nil {
			return nil, false
		}
		// Undefined bytes decode to U+FFFD; the input was not valid UTF-8,
		// so any replacement rune means this code page does not fit.
		if bytes.ContainsRune(out, utf8.RuneError) {
			return nil, false
		}
		return out, true
	}
}

// Reader parses source files.
type Reader struct {
	Encodings []Encoding
}

// NewReader returns a Reader using DefaultEncodings.
func NewReader() *Reader {
	return &Reader{Encodings: DefaultEncodings}
}

// ReadFile parses the file at path into a raw Frame.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsSupportedFile(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat source: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		defer f.Close()

		frame, enc, err := r.ReadCSV(f)
		if err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Debug("csv decoded", "path", path, "encoding", enc, "rows", frame.Len())
		return frame, nil
	}

	return readExcel(path)
}

// ReadCSV decodes and parses CSV input, returning the encoding that worked.
func (r *Reader) ReadCSV(src io.Reader) (*Frame, string, error) {
	raw, err := io.ReadAll(NewBOMSkippingReader(src))
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}

	encodings := r.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	for _, enc := range encodings {
		decoded, ok := enc.Decode(raw)
		if !ok {
			continue
		}
		frame, err := parseCSV(decoded)
		if err != nil {
			return nil, "", err
		}
		return frame, enc.Name, nil
	}

	names := make([]string, len(encodings))
	for i, enc := range encodings {
		names[i] = enc.Name
	}
	return nil, "", fmt.Errorf("%w: tried %s", ErrDecode, strings.Join(names, ", "))
}

func parseCSV(data []byte) (*Frame, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrDecode, err)
	}
	if len(records) == 0 {
		return &Frame{}, nil
	}
	return NewFrame(records[0], records[1:]), nil
}

// ole2Magic starts every OLE2 compound file, which is how legacy BIFF
// .xls workbooks are stored.
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// readExcel reads the first sheet of a workbook. OLE2 files go to the BIFF
// reader; everything else, including OOXML saved with an .xls name, goes to
// excelize.
func readExcel(path string) (*Frame, error) {
	legacy, err := isOLE2(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	if legacy {
		return readBIFF(path)
	}
	return readOOXML(path)
}

func isOLE2(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(ole2Magic))
	if _, err := io.ReadFull(f, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, ole2Magic), nil
}

func readOOXML(path string) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open spreadsheet: %v", ErrDecode, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Frame{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrDecode, sheets[0], err)
	}
	return rowsToFrame(rows), nil
}

// biffSheet is the part of a BIFF worksheet the reader uses.
type biffSheet interface {
	LastRow() int
	Cells(row int) []string
}

type xlsSheet struct {
	ws *xls.WorkSheet
}

func (s xlsSheet) LastRow() int { return int(s.ws.MaxRow) }

func (s xlsSheet) Cells(i int) []string {
	row := s.ws.Row(i)
	if row == nil {
		return nil
	}
	cells := make([]string, 0, row.LastCol()+1)
	for c := 0; c <= row.LastCol(); c++ {
		cells = append(cells, row.Col(c))
	}
	return cells
}

// readBIFF reads the first sheet of a legacy .xls workbook. The BIFF parser
// panics on some malformed files, so a panic is reported as ErrDecode.
func readBIFF(path string) (frame *Frame, err error) {
	defer func() {
		if p := recover(); p != nil {
			frame, err = nil, fmt.Errorf("%w: read xls: %v", ErrDecode, p)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: open xls: %v", ErrDecode, err)
	}
	if wb.NumSheets() == 0 {
		return &Frame{}, nil
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return &Frame{}, nil
	}
	return sheetFrame(xlsSheet{ws: ws}), nil
}

// sheetFrame collects the rows of s. Cells after the last non-empty one are
// trimmed, matching what excelize returns for OOXML sheets.
func sheetFrame(s biffSheet) *Frame {
	var rows [][]string
	for i := 0; i <= s.LastRow(); i++ {
		cells := s.Cells(i)
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rowsToFrame(rows)
}

func rowsToFrame(rows [][]string) *Frame {
	if len(rows) == 0 {
		return &Frame{}
	}
	return NewFrame(rows[0], rows[1:])
}
