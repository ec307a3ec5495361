// Package output serializes URL lists in the formats the CLI offers.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Format names an output serialization.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatTXT, FormatJSON, FormatCSV, FormatXLSX, FormatYAML}

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrBinaryFormat is returned when a binary format is written to a stream.
	ErrBinaryFormat = errors.New("xlsx output cannot be displayed in a terminal, use --output")
)

const sheetName = "Sheet1"

// ParseFormat normalizes a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Write serializes urls to w. xlsx is file-only and yields ErrBinaryFormat.
func Write(w io.Writer, urls []string, format Format) error {
	switch format {
	case FormatTXT:
		_, err := io.WriteString(w, strings.Join(urls, "\n"))
		return err
	case FormatJSON:
		return writeJSON(w, urls)
	case FormatCSV:
		return writeCSV(w, urls)
	case FormatYAML:
		return writeYAML(w, urls)
	case FormatXLSX:
		return ErrBinaryFormat
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteFile serializes urls into the file at path.
func WriteFile(path string, urls []string, format Format) error {
	if format == FormatXLSX {
		return writeXLSX(path, urls)
	}

	var buf bytes.Buffer
	if err := Write(&buf, urls, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(urls); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

func writeCSV(w io.Writer, urls []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"url"}); err != nil {
		return err
	}
	for _, u := range urls {
		if err := cw.Write([]string{u}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeYAML(w io.Writer, urls []string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(urls); err != nil {
		return err
	}
	return enc.Close()
}

func writeXLSX(path string, urls []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetCellValue(sheetName, "A1", "url"); err != nil {
		return err
	}
	for i, u := range urls {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, u); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
