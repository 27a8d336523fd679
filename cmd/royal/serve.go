package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caffeineduck/royal/dispatch"
	"github.com/caffeineduck/royal/language"
	"github.com/caffeineduck/royal/preview"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for running code",
	Long: `Start an HTTP server that exposes the run dispatcher.

Endpoints:
  POST   /execute     Run code: {"code":"...","lang":"javascript"}
  POST   /preview     Render HTML: {"code":"..."}, returns text/html
  GET    /languages   List selectable languages
  GET    /health      Health check`,
	RunE:         runServe,
	SilenceUsage: true,
}

const maxRequestBody = 4 << 20

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

type executeRequest struct {
	Code string `json:"code"`
	Lang string `json:"lang,omitempty"`
}

type executeResponse struct {
	Output     string `json:"output"`
	Failed     bool   `json:"failed"`
	Language   string `json:"language"`
	DurationMs int64  `json:"duration_ms"`
}

type previewRequest struct {
	Code string `json:"code"`
}

// server serves runs over HTTP. Requests are independent: each gets its own
// console and, for HTML, its own frame.
type server struct {
	dispatcher      *dispatch.Dispatcher
	defaultLang     string
	previewMaxBytes int
	logger          *slog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /preview", s.handlePreview)
	mux.HandleFunc("GET /languages", s.handleLanguages)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	reqLang := req.Lang
	if reqLang == "" {
		reqLang = s.defaultLang
	}
	lang, err := resolveLanguage(reqLang, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := s.dispatcher.Run(r.Context(), lang, req.Code)
	s.logger.Info("execute", "lang", string(lang.ID), "failed", res.Failed, "duration", res.Duration)

	writeJSON(w, executeResponse{
		Output:     res.Output,
		Failed:     res.Failed,
		Language:   string(lang.ID),
		DurationMs: res.Duration.Milliseconds(),
	})
}

func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	markup, err := preview.Render(req.Code, preview.WithMaxBytes(s.previewMaxBytes))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, preview.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, dispatch.ErrorOutput(err.Error()), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!DOCTYPE html>" + markup))
}

func (s *server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		language.Descriptor
		Runnable bool `json:"runnable"`
	}
	all := language.All()
	out := make([]entry, len(all))
	for i, d := range all {
		out[i] = entry{Descriptor: d, Runnable: d.Runnable()}
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &server{
		dispatcher:      a.dispatcher,
		defaultLang:     a.cfg.Language,
		previewMaxBytes: a.cfg.PreviewMaxBytes,
		logger:          a.logger,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("royal server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}
