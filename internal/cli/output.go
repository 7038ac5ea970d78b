package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"github.com/osgiliath/console/internal/viewmodel"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

type printer struct {
	w      io.Writer
	format string
}

// defaultFormat prints tables to a terminal and JSON to pipes.
func defaultFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return FormatTable
	}
	return FormatJSON
}

func (p printer) jsonMode() bool {
	return p.format == FormatJSON
}

func (p printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (p printer) Linef(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// describe turns a view-model error into the text a user should read.
func describe(err error) string {
	var verr *viewmodel.ValidationError
	if errors.As(err, &verr) {
		var b strings.Builder
		b.WriteString(viewmodel.Message(err))
		for _, key := range verr.Fields.Keys() {
			fmt.Fprintf(&b, "\n  %s: %s", key, verr.Fields[key])
		}
		return b.String()
	}
	var serr *viewmodel.SubmitError
	if errors.As(err, &serr) && len(serr.Fields) > 0 {
		var b strings.Builder
		b.WriteString(serr.Message)
		for _, key := range viewmodel.FieldErrors(serr.Fields).Keys() {
			fmt.Fprintf(&b, "\n  %s: %s", key, serr.Fields[key])
		}
		return b.String()
	}
	var lerr *viewmodel.LoadError
	var perr *viewmodel.PreconditionError
	if errors.As(err, &lerr) || errors.As(err, &serr) || errors.As(err, &perr) {
		return viewmodel.Message(err)
	}
	return err.Error()
}
