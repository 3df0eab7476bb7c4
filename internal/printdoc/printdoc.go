// Package printdoc renders records into printable HTML documents. A layout
// either prints one section per record (cards, receipts) or lays all the
// records out in a single listing (the roster).
package printdoc

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"sheetsync/internal/record"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Clock provides the print date.
type Clock interface {
	Now() time.Time
}

// Layout describes one print layout.
type Layout struct {
	Name  string
	Kind  string // record kind the layout expects
	Title string
	// Listing layouts print all records in one section instead of one
	// section per record.
	Listing bool
}

var layouts = map[string]Layout{
	"athlete-roster": {Name: "athlete-roster", Kind: "athletes", Title: "บัญชีรายชื่อนักกีฬา", Listing: true},
	"athlete-card":   {Name: "athlete-card", Kind: "athletes", Title: "ใบยืนยันการลงทะเบียนนักกีฬา"},
	"order-receipt":  {Name: "order-receipt", Kind: "orders", Title: "Flower Receipt"},
}

// Layouts returns the names of the layouts available for kind, sorted.
func Layouts(kind string) []string {
	var names []string
	for name, l := range layouts {
		if l.Kind == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Options are the organisation details printed on documents.
type Options struct {
	Organization string
	LogoURL      string
	Location     *time.Location
}

// Renderer renders records with one layout.
type Renderer struct {
	layout Layout
	opts   Options
	clock  Clock
	tmpl   *template.Template
}

// NewRenderer returns a renderer for the named layout. kind must match the
// record kind the layout was written for.
func NewRenderer(name string, kind record.Kind, clock Clock, opts Options) (*Renderer, error) {
	l, ok := layouts[name]
	if !ok {
		return nil, fmt.Errorf("unknown print layout %q", name)
	}
	if l.Kind != kind.Name {
		return nil, fmt.Errorf("print layout %q is for %s, not %s (available: %s)",
			name, l.Kind, kind.Name, strings.Join(Layouts(kind.Name), ", "))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	tmpl, err := template.New("printdoc").Funcs(funcMap(opts.Location)).ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing print templates: %w", err)
	}

	return &Renderer{layout: l, opts: opts, clock: clock, tmpl: tmpl}, nil
}

// Layout returns the renderer's layout.
func (r *Renderer) Layout() Layout {
	return r.layout
}

type page struct {
	Title   string
	Record  record.Record
	Records record.Collection
	Bulk    bool
	Printed time.Time
	Options Options
}

// RenderOne writes a document holding a single record.
func (r *Renderer) RenderOne(w io.Writer, rec record.Record) error {
	return r.render(w, record.Collection{rec}, false)
}

// RenderBulk writes one document for recs. Per-record layouts get one
// section per record with a page break between consecutive sections, so n
// records produce n sections and n-1 breaks. No records produce no output.
func (r *Renderer) RenderBulk(w io.Writer, recs record.Collection) error {
	if len(recs) == 0 {
		return nil
	}
	return r.render(w, recs, true)
}

func (r *Renderer) render(w io.Writer, recs record.Collection, bulk bool) error {
	p := page{
		Title:   r.layout.Title,
		Records: recs,
		Bulk:    bulk,
		Printed: r.clock.Now().In(r.opts.Location),
		Options: r.opts,
	}

	// Render into memory so a template failure leaves w untouched.
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "open", p); err != nil {
		return fmt.Errorf("rendering %s: %w", r.layout.Name, err)
	}
	if r.layout.Listing {
		if err := r.tmpl.ExecuteTemplate(&buf, r.layout.Name, p); err != nil {
			return fmt.Errorf("rendering %s: %w", r.layout.Name, err)
		}
	} else {
		for i, rec := range recs {
			p.Record = rec
			if err := r.tmpl.ExecuteTemplate(&buf, r.layout.Name, p); err != nil {
				return fmt.Errorf("rendering %s for %s: %w", r.layout.Name, rec.ID, err)
			}
			if i < len(recs)-1 {
				if err := r.tmpl.ExecuteTemplate(&buf, "break", nil); err != nil {
					return err
				}
			}
		}
	}
	if err := r.tmpl.ExecuteTemplate(&buf, "close", nil); err != nil {
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}

func funcMap(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"field":         func(r record.Record, name string) string { return r.Get(name) },
		"imageURL":      imageURL,
		"thaiLongDate":  ThaiLongDate,
		"thaiShortDate": ThaiShortDate,
		"thaiDateTime":  func(s string) string { return ThaiDateTime(s, loc) },
		"buddhistYear":  BuddhistYear,
		"receiptNo":     ReceiptNumber,
		"upper":         strings.ToUpper,
		"inc":           func(i int) int { return i + 1 },
		"list":          func(s ...string) []string { return s },
	}
}

// imageURL marks photo links safe for an <img src>. Only http(s) links and
// inline image data are allowed through.
func imageURL(raw string) template.URL {
	u := record.DirectImageURL(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "data:image/"):
		return template.URL(u)
	}
	return ""
}
