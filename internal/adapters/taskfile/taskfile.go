// Package taskfile reads task declarations from JSON, YAML, TOML and HCL
// documents and validates them as a task set.
package taskfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// Format identifies a task file encoding.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatHCL  Format = "hcl"
)

// Formats lists the supported explicit formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML, FormatHCL}

// ParseFormat converts a user supplied name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatJSON, FormatYAML, FormatTOML, FormatHCL:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "auto":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown task file format %q", s)
	}
}

// DetectFormat picks a format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("cannot detect task file format of %q", path)
	}
}

// Load reads and validates the task file at path. FormatAuto detects the
// format from the file extension.
func Load(path string, format Format) ([]domain.Description, error) {
	if format == FormatAuto {
		detected, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	descs, err := decode(data, format, path)
	if err != nil {
		return nil, err
	}
	return descs, nil
}

// Parse reads and validates a task document from r. format must not be
// FormatAuto.
func Parse(r io.Reader, format Format) ([]domain.Description, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}
	return decode(buf.Bytes(), format, "tasks."+string(format))
}

func decode(data []byte, format Format, filename string) ([]domain.Description, error) {
	var (
		descs []domain.Description
		err   error
	)
	switch format {
	case FormatJSON:
		descs, err = decodeJSON(data)
	case FormatYAML:
		descs, err = decodeYAML(data)
	case FormatTOML:
		descs, err = decodeTOML(data)
	case FormatHCL:
		descs, err = decodeHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported task file format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDescriptions(descs); err != nil {
		return nil, err
	}
	return descs, nil
}
