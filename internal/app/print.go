package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"sheetsync/internal/archive"
	"sheetsync/internal/printdoc"
	"sheetsync/internal/record"
)

// PrintRequest selects what Print renders. With no IDs and Selected unset
// every record is printed.
type PrintRequest struct {
	IDs      []string
	Selected bool
	Layout   string // empty uses print.layout, then the kind's default
	Publish  bool   // also store the document in the archive
	Encrypt  bool   // age-encrypt the document
}

// PrintResult describes a rendered document.
type PrintResult struct {
	Layout string
	Count  int
	Key    string // archive key when published
}

// Print renders the requested records with a print layout and writes the
// document to w. Nothing is written when no record matches.
func (a *App) Print(ctx context.Context, w io.Writer, req PrintRequest) (PrintResult, error) {
	if len(req.IDs) > 0 && req.Selected {
		return PrintResult{}, a.op.Fail(errors.New("print either ids or the selection, not both"))
	}
	if req.Encrypt && !a.encryptor.IsConfigured() {
		return PrintResult{}, a.op.Fail(errNoKeys)
	}

	renderer, err := a.renderer(req.Layout)
	if err != nil {
		return PrintResult{}, a.op.Fail(err)
	}
	res := PrintResult{Layout: renderer.Layout().Name}

	c, err := a.fetch(ctx)
	if err != nil {
		return res, err
	}
	recs, err := a.printable(c, req)
	if err != nil {
		return res, a.op.Fail(err)
	}
	res.Count = len(recs)
	if len(recs) == 0 {
		return res, nil
	}

	var doc bytes.Buffer
	if len(req.IDs) == 1 {
		err = renderer.RenderOne(&doc, recs[0])
	} else {
		err = renderer.RenderBulk(&doc, recs)
	}
	if err != nil {
		return res, a.op.Fail(fmt.Errorf("rendering %s: %w", res.Layout, err))
	}

	key := archive.DocumentKey(a.kind.Name, res.Layout, a.clock.Now())
	out := doc.Bytes()
	if req.Encrypt {
		var enc bytes.Buffer
		if err := a.encryptor.Encrypt(bytes.NewReader(out), &enc); err != nil {
			return res, a.op.Fail(fmt.Errorf("encrypting document: %w", err))
		}
		out = enc.Bytes()
		key += ".age"
	}

	if req.Publish {
		if err := a.archive.Put(ctx, key, bytes.NewReader(out), int64(len(out))); err != nil {
			return res, a.op.Fail(fmt.Errorf("publishing document: %w", err))
		}
		res.Key = key
		a.logger.Info("document published", "key", key, "records", res.Count)
	}

	if w != nil {
		if _, err := w.Write(out); err != nil {
			return res, a.op.Fail(fmt.Errorf("writing document: %w", err))
		}
	}
	return res, nil
}

func (a *App) renderer(layout string) (*printdoc.Renderer, error) {
	if layout == "" {
		layout = a.cfg.Print.Layout
	}
	if layout == "" {
		layout = a.kind.DefaultLayout
	}
	return printdoc.NewRenderer(layout, a.kind, a.clock, printdoc.Options{
		Organization: a.cfg.Print.Organization,
		LogoURL:      a.cfg.Print.LogoURL,
		Location:     a.loc,
	})
}

// printable picks the records a PrintRequest names out of c.
func (a *App) printable(c record.Collection, req PrintRequest) (record.Collection, error) {
	switch {
	case len(req.IDs) > 0:
		out := make(record.Collection, 0, len(req.IDs))
		for _, id := range req.IDs {
			r, ok := c.Find(id)
			if !ok {
				return nil, fmt.Errorf("printing %s %s: %w", a.kind.Noun, record.CanonicalID(id), record.ErrNotFound)
			}
			out = append(out, r)
		}
		return out, nil
	case req.Selected:
		sel, err := a.selection.Load(a.kind.Name)
		if err != nil {
			return nil, err
		}
		return sel.Pick(c), nil
	default:
		return c, nil
	}
}

// Archived lists archive entries under prefix.
func (a *App) Archived(ctx context.Context, prefix string) ([]archive.Entry, error) {
	entries, err := a.archive.List(ctx, prefix)
	return entries, a.op.Fail(err)
}

// FetchArchived writes the archive entry stored under key to w.
func (a *App) FetchArchived(ctx context.Context, key string, w io.Writer) error {
	return a.op.Fail(a.archive.Get(ctx, key, w))
}

// BackupJournal snapshots the journal and stores it in the archive.
// Returns the archive key.
func (a *App) BackupJournal(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "sheetsync-journal-*.db")
	if err != nil {
		return "", a.op.Fail(fmt.Errorf("creating temp file for journal backup: %w", err))
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.journal.BackupTo(tmpPath); err != nil {
		return "", a.op.Fail(fmt.Errorf("backing up journal: %w", err))
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", a.op.Fail(fmt.Errorf("opening journal backup: %w", err))
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", a.op.Fail(fmt.Errorf("stat journal backup: %w", err))
	}

	key := archive.JournalKey(a.cfg.InstanceID, a.clock.Now())
	if err := a.archive.Put(ctx, key, f, info.Size()); err != nil {
		return "", a.op.Fail(fmt.Errorf("uploading journal backup: %w", err))
	}
	a.logger.Info("journal backed up", "key", key, "bytes", info.Size())
	return key, nil
}
