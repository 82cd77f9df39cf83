// Package formatting renders a reconciliation result for the CLI.
//
// JSON output uses the Ansible module return keys and is what the module
// entrypoint always emits. YAML and table output are for humans.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"dsclients/internal/reconciler"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
	FormatTable OutputFormat = "table" // Rich table output
)

// Formats lists the accepted --output values.
var Formats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

// ParseFormat validates an --output value.
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (valid: table, json, yaml)", s)
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Compact JSON, no step table
	Color  bool // Enable colored output
}

// Write renders result to w.
func Write(w io.Writer, opts Options, result reconciler.Result) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, opts, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatTable, "":
		return writeTable(w, opts, result)
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func writeJSON(w io.Writer, opts Options, result reconciler.Result) error {
	var (
		data []byte
		err  error
	)
	if opts.Quiet {
		data, err = json.Marshal(result)
	} else {
		data, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, result reconciler.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return enc.Close()
}
