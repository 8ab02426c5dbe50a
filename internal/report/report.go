package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/reconcile"
	"github.com/roach88/fcd/internal/register"
	"github.com/roach88/fcd/internal/store"
)

// labelWidth fits the longest status label.
const labelWidth = len("UNREADABLE")

// Writer renders outcomes in one format.
type Writer struct {
	Format Format
	Out    io.Writer
	// ErrOut receives text-format errors (defaults to Out). Structured
	// formats always write the error envelope to Out.
	ErrOut io.Writer
	// Color enables ANSI styling of text status labels.
	Color bool
	// Verbose shows OK entries and error details in text output.
	Verbose bool
	// RunID is echoed in structured output.
	RunID string

	renderer *lipgloss.Renderer
}

// Check renders the outcome of a check. mode is "all", "single" or
// "subtree"; root is empty for check-all.
func (w *Writer) Check(mode, root string, res reconcile.Result) error {
	view := CheckView{
		Mode:    mode,
		Root:    root,
		Clean:   res.Clean(),
		Scanned: res.Scanned,
		Known:   res.Known,
		Summary: res.Summary(),
		Entries: make([]EntryView, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		view.Entries = append(view.Entries, entryView(e))
	}

	return w.emit(view, func(out io.Writer) {
		for _, e := range res.Entries {
			if e.Status == reconcile.OK && !w.Verbose {
				continue
			}
			fmt.Fprintf(out, "%s %s", w.label(e.Status), e.Path)
			switch {
			case e.Status == reconcile.Mismatch:
				fmt.Fprintf(out, " (stored %s, current %s)", e.StoredDigest, e.CurrentDigest)
			case e.Err != nil:
				fmt.Fprintf(out, ": %v", e.Err)
			}
			fmt.Fprintln(out)
		}
		s := view.Summary
		fmt.Fprintf(out, "%d checked: %d ok, %d deleted, %d mismatch, %d untracked, %d unreadable\n",
			len(res.Entries), s.OK, s.Deleted, s.Mismatch, s.Untracked, s.Unreadable)
	})
}

// Records renders stored records. Text output uses the sha256sum layout.
func (w *Writer) Records(recs []store.Record) error {
	views := make([]RecordView, 0, len(recs))
	for _, r := range recs {
		views = append(views, recordView(r))
	}

	return w.emit(views, func(out io.Writer) {
		for _, r := range recs {
			fmt.Fprintf(out, "%s  %s\n", r.Digest, r.Path)
		}
	})
}

// Registrations renders the outcome of add or add-folder.
func (w *Writer) Registrations(results []register.Result) error {
	view := registrationsView(results)

	return w.emit(view, func(out io.Writer) {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", w.pad("skipped", w.styles().warn), r.Path, r.Err)
				continue
			}
			if w.Verbose || len(results) == 1 {
				fmt.Fprintf(out, "%s %s\n", w.pad("added", w.styles().ok), r.Path)
			}
		}
		fmt.Fprintf(out, "registered %d, skipped %d\n", view.Registered, view.Skipped)
	})
}

// RemoveView is the payload of remove.
type RemoveView struct {
	Path    string `json:"path" yaml:"path"`
	Removed bool   `json:"removed" yaml:"removed"`
}

// Removed renders the outcome of remove.
func (w *Writer) Removed(path string, removed bool) error {
	return w.emit(RemoveView{Path: path, Removed: removed}, func(out io.Writer) {
		if removed {
			fmt.Fprintf(out, "removed %s\n", path)
			return
		}
		fmt.Fprintf(out, "not tracked, nothing removed: %s\n", path)
	})
}

// StoreView is the payload of init.
type StoreView struct {
	Location string `json:"location" yaml:"location"`
}

// Initialized renders the outcome of init.
func (w *Writer) Initialized(location string) error {
	return w.emit(StoreView{Location: location}, func(out io.Writer) {
		fmt.Fprintf(out, "initialized store at %s\n", location)
	})
}

// TransferView is the payload of export and import.
type TransferView struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Records int    `json:"records" yaml:"records"`
}

// Exported renders the outcome of export.
func (w *Writer) Exported(file string, n int) error {
	return w.emit(TransferView{File: file, Records: n}, func(out io.Writer) {
		fmt.Fprintf(out, "exported %d records to %s\n", n, file)
	})
}

// Imported renders the outcome of import.
func (w *Writer) Imported(file string, n int) error {
	return w.emit(TransferView{File: file, Records: n}, func(out io.Writer) {
		fmt.Fprintf(out, "imported %d records from %s\n", n, file)
	})
}

// Error renders a failed command.
func (w *Writer) Error(err error) error {
	body := errorBody(err)

	if w.Format == Text {
		out := w.ErrOut
		if out == nil {
			out = w.Out
		}
		fmt.Fprintf(out, "Error [%s]: %s\n", body.Code, body.Message)
		if w.Verbose && len(body.Details) > 0 {
			fmt.Fprintf(out, "Details: %v\n", body.Details)
		}
		return nil
	}
	return w.encode(Response{Status: "error", Error: body, RunID: w.RunID})
}

func (w *Writer) emit(data any, text func(io.Writer)) error {
	if w.Format == Text || w.Format == "" {
		text(w.Out)
		return nil
	}
	return w.encode(Response{Status: "ok", Data: data, RunID: w.RunID})
}

func (w *Writer) encode(resp Response) error {
	switch w.Format {
	case JSON:
		enc := json.NewEncoder(w.Out)
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	case YAML:
		enc := yaml.NewEncoder(w.Out)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", w.Format)
}

func errorBody(err error) *ErrorBody {
	var fe *fcderr.Error
	if !errors.As(err, &fe) {
		return &ErrorBody{Code: string(fcderr.Unknown), Message: err.Error()}
	}
	msg := fe.Message
	if fe.Wrapped != nil {
		msg += ": " + fe.Wrapped.Error()
	}
	body := &ErrorBody{Code: string(fe.Code), Message: msg}
	if len(fe.Details) > 0 {
		body.Details = fe.Details
	}
	return body
}

type styles struct {
	ok, warn, bad, info lipgloss.Style
}

func (w *Writer) styles() styles {
	if w.renderer == nil {
		w.renderer = lipgloss.NewRenderer(w.Out)
		if w.Color {
			w.renderer.SetColorProfile(termenv.ANSI)
		} else {
			w.renderer.SetColorProfile(termenv.Ascii)
		}
	}
	r := w.renderer
	return styles{
		ok:   r.NewStyle().Foreground(lipgloss.Color("2")),
		warn: r.NewStyle().Foreground(lipgloss.Color("3")),
		bad:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		info: r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

func (w *Writer) label(s reconcile.Status) string {
	st := w.styles()
	var style lipgloss.Style
	switch s {
	case reconcile.OK:
		style = st.ok
	case reconcile.Untracked:
		style = st.info
	case reconcile.Unreadable:
		style = st.warn
	default:
		style = st.bad
	}
	return w.pad(string(s), style)
}

// pad styles text and right-pads it to labelWidth. Padding is added after
// styling so escape sequences do not count towards the width.
func (w *Writer) pad(text string, style lipgloss.Style) string {
	n := labelWidth - len(text)
	if n < 0 {
		n = 0
	}
	return style.Render(text) + strings.Repeat(" ", n)
}
