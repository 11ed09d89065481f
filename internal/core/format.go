package core

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for file names whose suffix maps to no known format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFormatUnavailable is returned when a known format's adapter is not
	// linked into the running binary.
	ErrFormatUnavailable = errors.New("format unavailable in this build")
)

// Format names.
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

// knownSuffixes maps lowercase file suffixes to format names. A suffix may be
// known even when its adapter is not registered.
var knownSuffixes = map[string]string{
	".csv":  FormatCSV,
	".xlsx": FormatExcel,
	".xls":  FormatExcel,
}

// EnumStyle selects how status and color values are written on export.
type EnumStyle int

const (
	// EnumCodes writes lowercase codes ("won", "#28a745"); the file re-imports cleanly.
	EnumCodes EnumStyle = iota
	// EnumLabels writes display labels ("Won", "Green - Hot Lead") for people.
	EnumLabels
)

// Sheet is a parsed or to-be-written table: one header row plus data rows.
// Cells are typed; CSV yields strings, spreadsheets may yield numbers or times.
type Sheet struct {
	Header []string
	Rows   [][]any
}

// Format reads and writes one file format.
type Format interface {
	// Name is the registry key, e.g. "csv".
	Name() string
	// FileExtension is the suffix used for exported files, including the dot.
	FileExtension() string
	ContentType() string
	EnumStyle() EnumStyle
	// Parse reads the whole file. An empty file yields a Sheet with no header.
	Parse(r io.Reader) (*Sheet, error)
	Write(w io.Writer, s *Sheet) error
}

var (
	formats   = make(map[string]Format)
	formatsMu sync.RWMutex
)

// RegisterFormat adds a format adapter to the registry.
// Panics if a format with the same name is already registered.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if _, exists := formats[f.Name()]; exists {
		panic(fmt.Sprintf("format already registered: %s", f.Name()))
	}
	formats[f.Name()] = f
}

// unregisterFormat removes a format. Only tests use it to simulate a build
// without the spreadsheet adapter.
func unregisterFormat(name string) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	delete(formats, name)
}

// FormatByName returns a registered format. Known but unregistered names
// return ErrFormatUnavailable; anything else ErrUnsupportedFormat.
func FormatByName(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	formatsMu.RLock()
	f, ok := formats[name]
	formatsMu.RUnlock()
	if ok {
		return f, nil
	}

	for _, known := range knownSuffixes {
		if known == name {
			return nil, fmt.Errorf("%w: %s", ErrFormatUnavailable, name)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// FormatForFilename selects a format by the file name's suffix.
func FormatForFilename(fileName string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	name, ok := knownSuffixes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return FormatByName(name)
}

// Formats returns the names of all registered formats, sorted.
func Formats() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpreadsheetAvailable reports whether the Excel adapter is linked in.
func SpreadsheetAvailable() bool {
	_, err := FormatByName(FormatExcel)
	return err == nil
}
