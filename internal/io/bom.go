package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

var bomFormats = map[string]string{".json": "json", ".xml": "xml"}

func bomFileFormat(format string) cdx.BOMFileFormat {
	if format == "xml" {
		return cdx.BOMFileFormatXML
	}
	return cdx.BOMFileFormatJSON
}

// ReadBOM reads a model card BOM from a file (JSON or XML).
// The format parameter can be "json", "xml", or "auto" (default).
func ReadBOM(path string, format string) (*cdx.BOM, error) {
	actual, err := resolveFormat(path, format, bomFormats, "json")
	if err != nil {
		return nil, fmt.Errorf("read BOM: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(f, bomFileFormat(actual)).Decode(bom); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return bom, nil
}

// WriteBOM writes a BOM to outputPath. With "auto" the format follows the
// extension; an explicit format must agree with it. A non-empty spec encodes
// with that CycloneDX version.
func WriteBOM(bom *cdx.BOM, outputPath string, format string, spec string) error {
	actual, err := resolveFormat(outputPath, format, bomFormats, "json")
	if err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	if ext := filepath.Ext(outputPath); !strings.EqualFold(ext, "."+actual) {
		return fmt.Errorf("output path extension %q does not match format %q", ext, actual)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := cdx.NewBOMEncoder(f, bomFileFormat(actual))
	encoder.SetPretty(true)
	if spec == "" {
		return encoder.Encode(bom)
	}
	sv, ok := ParseSpecVersion(spec)
	if !ok {
		return fmt.Errorf("unsupported CycloneDX spec version: %q", spec)
	}
	return encoder.EncodeVersion(bom, sv)
}

// ParseSpecVersion parses a CycloneDX spec version. Model cards need 1.5 or
// later; older versions are rejected.
func ParseSpecVersion(s string) (cdx.SpecVersion, bool) {
	switch strings.TrimSpace(s) {
	case "1.5":
		return cdx.SpecVersion1_5, true
	case "1.6":
		return cdx.SpecVersion1_6, true
	}
	return cdx.SpecVersion1_6, false
}
