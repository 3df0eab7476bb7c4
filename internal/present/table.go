package present

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"sheetsync/internal/record"
)

// maxCellWidth caps long free-text cells such as order details.
const maxCellWidth = 40

// TableOptions control RenderTable.
type TableOptions struct {
	Selection *Selection // when set, a leading column marks selected rows
	InFlight  []string   // ids shown with a pending marker
}

// RenderTable writes c as an aligned plain-text table of the kind's
// display columns, preceded by the record id.
func RenderTable(w io.Writer, kind record.Kind, c record.Collection, opts TableOptions) error {
	if len(c) == 0 {
		_, err := fmt.Fprintf(w, "No %s found.\n", kind.Name)
		return err
	}

	pending := make(map[string]bool, len(opts.InFlight))
	for _, id := range opts.InFlight {
		pending[id] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	if opts.Selection != nil {
		// The header box is checked when every listed row is selected.
		header = append([]string{checkbox(opts.Selection.AllSelected(c))}, header...)
	}
	for _, col := range kind.Columns {
		header = append(header, strings.ToUpper(col.Label))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range c {
		id := r.ID
		if pending[id] {
			id += " *"
		}
		row := []string{id}
		if opts.Selection != nil {
			row = append([]string{checkbox(opts.Selection.Has(r.ID))}, row...)
		}
		for _, col := range kind.Columns {
			row = append(row, cell(r.Get(col.Field)))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func checkbox(checked bool) string {
	if checked {
		return "[x]"
	}
	return "[ ]"
}

// RenderDetails writes every field of r, one per line, in the kind's
// field order followed by any extra fields the store returned.
func RenderDetails(w io.Writer, kind record.Kind, r record.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", r.ID)
	if r.CreatedAt != nil {
		fmt.Fprintf(tw, "createdAt\t%s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	seen := map[string]bool{}
	for _, f := range kind.Fields {
		seen[f] = true
		fmt.Fprintf(tw, "%s\t%s\n", f, summarize(f, r.Get(f)))
	}
	for _, f := range sortedKeys(r.Fields) {
		if !seen[f] {
			fmt.Fprintf(tw, "%s\t%s\n", f, summarize(f, r.Get(f)))
		}
	}
	return tw.Flush()
}

// cell flattens a value onto one line and truncates it.
func cell(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if utf8.RuneCountInString(v) <= maxCellWidth {
		return v
	}
	runes := []rune(v)
	return string(runes[:maxCellWidth-3]) + "..."
}

// summarize keeps inline photos from flooding the terminal.
func summarize(field, v string) string {
	if strings.HasPrefix(v, "data:") {
		end := strings.IndexByte(v, ',')
		if end < 0 {
			end = len(v)
		}
		return fmt.Sprintf("%s (%d bytes inline)", v[:end], len(v))
	}
	if field == "photoUrl" {
		return record.DirectImageURL(v)
	}
	return v
}
