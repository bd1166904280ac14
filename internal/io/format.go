// Package io reads and writes the files cefrgrade produces: fold workbooks,
// prediction lists, statistics records, feature tables and model card BOMs.
package io

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// resolveFormat maps "auto" (or "") to a format by file extension using
// byExt, falling back to def. Explicit formats must be in byExt's values.
func resolveFormat(path, format string, byExt map[string]string, def string) (string, error) {
	actual := strings.ToLower(strings.TrimSpace(format))
	switch actual {
	case "", "auto":
		if f, ok := byExt[strings.ToLower(filepath.Ext(path))]; ok {
			return f, nil
		}
		return def, nil
	}
	for _, f := range byExt {
		if f == actual {
			return actual, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %q", format)
}

// formatFloat renders v the way the grading scripts always have: shortest
// round-trip digits with a trailing ".0" on whole numbers.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
