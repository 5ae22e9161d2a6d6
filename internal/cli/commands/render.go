package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/sayiza/orapgsync/pkg/transform"
)

// renderDiagnostics prints the diagnostics of one result in the requested
// format. The table format is the default for terminals.
func renderDiagnostics(w io.Writer, source string, res *transform.Result, format string) error {
	switch format {
	case "json":
		return renderDiagnosticsJSON(w, source, res)
	default:
		renderDiagnosticsTable(w, source, res)
		return nil
	}
}

func renderDiagnosticsTable(w io.Writer, source string, res *transform.Result) {
	if len(res.Diagnostics) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(tableStyle())
	if width := terminalWidth(w); width > 0 {
		t.SetAllowedRowLength(width)
	}
	t.AppendHeader(table.Row{"Source", "Pos", "Severity", "Kind", "Message"})
	for _, d := range res.Diagnostics {
		t.AppendRow(table.Row{
			source,
			fmt.Sprintf("%d:%d", d.Pos.Line, d.Pos.Column),
			d.Severity.String(),
			string(d.Kind),
			d.Message,
		})
	}
	t.Render()
}

// tableStyle picks a table style matching the terminal's capabilities:
// colored severity column on color terminals, plain box drawing otherwise.
func tableStyle() table.Style {
	if termenv.DefaultOutput().Profile == termenv.Ascii {
		return table.StyleDefault
	}
	style := table.StyleLight
	style.Color.Header = text.Colors{text.Bold}
	return style
}

// terminalWidth returns the width of w when it is a terminal, 0 otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

type diagnosticReport struct {
	Source      string   `json:"source"`
	RunID       string   `json:"run_id"`
	Failed      bool     `json:"failed"`
	Diagnostics []string `json:"diagnostics"`
}

func renderDiagnosticsJSON(w io.Writer, source string, res *transform.Result) error {
	report := diagnosticReport{
		Source:      source,
		RunID:       res.RunID,
		Failed:      res.HasErrors(),
		Diagnostics: make([]string, 0, len(res.Diagnostics)),
	}
	for _, d := range res.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, d.String())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
