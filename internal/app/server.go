package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"sheetsync/internal/printdoc"
	"sheetsync/internal/record"
)

// Handler returns the read-only web view:
//
//	GET /              redirects to /print
//	GET /print         print document (?layout=, ?id= repeated, ?selected=1)
//	GET /records.json  filtered collection (?q=, ?sort=, ?desc=1)
//	GET /metrics       Prometheus metrics
//	GET /healthz       liveness
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/print", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /print", a.handlePrint)
	mux.HandleFunc("GET /records.json", a.handleRecords)
	mux.Handle("GET /metrics", a.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	return mux
}

// Serve runs the web view on addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return a.op.Fail(fmt.Errorf("listen on %s: %w", addr, err))
	}
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.logger.Info("serving", "addr", ln.Addr().String(), "kind", a.kind.Name)

	select {
	case err := <-errc:
		return a.op.Fail(fmt.Errorf("serving: %w", err))
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return a.op.Fail(fmt.Errorf("shutting down: %w", err))
	}
	return nil
}

func (a *App) handlePrint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	layout := q.Get("layout")
	if layout != "" && !slices.Contains(printdoc.Layouts(a.kind.Name), layout) {
		http.Error(w, fmt.Sprintf("unknown layout %q", layout), http.StatusBadRequest)
		return
	}

	var doc bytes.Buffer
	_, err := a.Print(r.Context(), &doc, PrintRequest{
		IDs:      q["id"],
		Selected: q.Get("selected") == "1",
		Layout:   layout,
	})
	if err != nil {
		a.httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(doc.Bytes())
}

func (a *App) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := a.List(r.Context(), ListOptions{
		Search: q.Get("q"),
		Sort:   q.Get("sort"),
		Desc:   q.Get("desc") == "1",
	})
	if err != nil {
		a.httpError(w, err)
		return
	}
	if c == nil {
		c = record.Collection{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (a *App) httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, record.ErrNotFound):
		status = http.StatusNotFound
	case record.IsConnection(err), record.IsApplication(err):
		status = http.StatusBadGateway
	case errors.Is(err, ErrUnknownField):
		status = http.StatusBadRequest
	}
	if status >= 500 {
		a.logger.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
