package io

import (
	"encoding/json"
	"fmt"
	goio "io"
	"math"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/speechassess/cefrgrade/internal/stats"
)

// WriteRecord writes statistics columns as an ordered yaml or json mapping.
// JSON has no NaN or infinity; such values are written as the strings
// "NaN", "+Inf" and "-Inf".
func WriteRecord(w goio.Writer, format string, cols []stats.Column) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return writeRecordYAML(w, cols)
	case "json":
		return writeRecordJSON(w, cols)
	}
	return fmt.Errorf("unsupported record format: %q", format)
}

func writeRecordYAML(w goio.Writer, cols []stats.Column) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range cols {
		var v yaml.Node
		if err := v.Encode(c.Value); err != nil {
			return fmt.Errorf("encode %s: %w", c.Name, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
			&v,
		)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func writeRecordJSON(w goio.Writer, cols []stats.Column) error {
	var b strings.Builder
	b.WriteString("{\n")
	for i, c := range cols {
		key, _ := json.Marshal(c.Name)
		var val []byte
		var err error
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			val, err = json.Marshal(strconv.FormatFloat(c.Value, 'g', -1, 64))
		} else {
			val, err = json.Marshal(c.Value)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  %s: %s", key, val)
		if i < len(cols)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	_, err := goio.WriteString(w, b.String())
	return err
}
