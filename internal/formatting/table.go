package formatting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dsclients/internal/reconciler"
)

const maxCellLen = 100

func writeTable(w io.Writer, opts Options, result reconciler.Result) error {
	paint := func(c text.Color, s string) string {
		if !opts.Color {
			return s
		}
		return c.Sprint(s)
	}

	status := paint(text.FgGreen, "ok")
	if result.Failed {
		status = paint(text.FgRed, "failed")
	} else if result.ReloadWarning != "" {
		status = paint(text.FgYellow, "ok (reload failed)")
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"KEY", "VALUE"})
	t.AppendRow(table.Row{"status", status})
	t.AppendRow(table.Row{"server_class", dash(result.ServerClass)})
	t.AppendRow(table.Row{"changed", strconv.FormatBool(result.Changed)})
	if result.OriginalMessage != "" {
		t.AppendRow(table.Row{"original_message", result.OriginalMessage})
	}
	if result.Message != "" {
		t.AppendRow(table.Row{"message", result.Message})
	}
	if result.Added > 0 {
		t.AppendRow(table.Row{"created", strconv.FormatBool(result.Created)})
		t.AppendRow(table.Row{"whitelist", fmt.Sprintf("whitelist.%d..whitelist.%d", result.StartIndex, result.StartIndex+result.Added-1)})
	}
	if result.Failed {
		t.AppendRow(table.Row{"msg", paint(text.FgRed, result.Msg)})
		t.AppendRow(table.Row{"error_kind", result.ErrorKind})
		t.AppendRow(table.Row{"cause", text.Snip(result.Cause, maxCellLen, "...")})
	}
	if result.ReloadWarning != "" {
		t.AppendRow(table.Row{"reload_warning", text.Snip(result.ReloadWarning, maxCellLen, "...")})
	}
	t.AppendRow(table.Row{"invocation_id", dash(result.InvocationID)})
	t.Render()

	if opts.Quiet || len(result.Steps) == 0 {
		return nil
	}

	steps := newTable(w)
	steps.AppendHeader(table.Row{"STEP", "RESULT", "DETAIL"})
	for _, s := range result.Steps {
		mark := paint(text.FgGreen, "✓")
		if !s.OK {
			mark = paint(text.FgRed, "✗")
		}
		steps.AppendRow(table.Row{string(s.Step), mark, text.Snip(s.Detail, maxCellLen, "...")})
	}
	steps.Render()
	return nil
}

// newTable creates a new table with standard styling
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
