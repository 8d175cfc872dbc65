package www

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"sync"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/config"
	"github.com/icodeforyou/doctypes-dashboard/database"
)

type SysInfo struct {
	Version      string
	UpstreamURL  string
	DatabasePath string
	MqttTopic    string
	StartedAt    time.Time
}

type Server struct {
	logger   *slog.Logger
	config   config.AppConfigApi
	db       *database.Database
	fetcher  chartview.Fetcher
	onLoaded []func(chartview.Series)
	hub      *Hub
	tm       *TemplateManager
	mux      *http.ServeMux

	viewMu sync.RWMutex
	view   *chartview.View
}

//go:embed static
var embeddedStaticDir embed.FS

// StartServer sets up the routes, starts the websocket hub and mounts the
// chart view. Every function in onLoaded runs once the view has loaded.
func StartServer(
	ctx context.Context,
	db *database.Database,
	fetcher chartview.Fetcher,
	config config.AppConfigApi,
	sysInfo SysInfo,
	onLoaded ...func(chartview.Series)) (*Server, error) {

	logger := slog.Default().With("module", "www")
	tm, err := NewTemplateManager(logger, config.WwwDir)
	if err != nil {
		return nil, fmt.Errorf("template manager initialization error: %w", err)
	}

	s := &Server{
		logger:   logger,
		config:   config,
		db:       db,
		fetcher:  fetcher,
		onLoaded: onLoaded,
		hub:      NewHub(logger),
		tm:       tm,
		mux:      http.NewServeMux(),
	}

	go s.hub.Run(ctx)

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	staticHandler, err := staticFilesHandler(config.WwwDir)
	if err != nil {
		return nil, err
	}
	s.mux.Handle("/", staticHandler)

	s.mux.Handle("/dashboard", logReqMW(NewDashboardHandler(
		logger.With(slog.String("handler", "dashboard")),
		s.currentView,
		s.tm)))

	s.mux.Handle("/chart", logReqMW(NewChartHandler(
		logger.With(slog.String("handler", "chart")),
		s.currentView)))

	s.mux.Handle("/chart.svg", logReqMW(NewChartSVGHandler(
		logger.With(slog.String("handler", "chart_svg")),
		s.currentView)))

	s.mux.Handle("/chart/reload", logReqMW(NewReloadHandler(
		logger.With(slog.String("handler", "chart_reload")),
		s.remount)))

	s.mux.Handle("/get_doc_types/", logReqMW(NewDocTypesHandler(
		logger.With(slog.String("handler", "get_doc_types")),
		s.db)))

	s.mux.Handle("/get_sources/", logReqMW(NewSourcesHandler(
		logger.With(slog.String("handler", "get_sources")),
		s.db)))

	s.mux.Handle("/document_logs/", logReqMW(NewDocumentLogHandler(
		logger.With(slog.String("handler", "document_logs")),
		s.db)))

	s.mux.Handle("/get_avg_processing_time/", logReqMW(NewAvgProcessingTimeHandler(
		logger.With(slog.String("handler", "get_avg_processing_time")),
		s.db)))

	s.mux.Handle("/recent_documents/", logReqMW(NewRecentDocumentsHandler(
		logger.With(slog.String("handler", "recent_documents")),
		s.db)))

	s.mux.Handle("/get_details_by_id/{id}", logReqMW(NewDocumentDetailsHandler(
		logger.With(slog.String("handler", "get_details_by_id")),
		s.db)))

	s.mux.Handle("/delete_document_by_id/{id}", logReqMW(NewDeleteDocumentHandler(
		logger.With(slog.String("handler", "delete_document_by_id")),
		s.db)))

	s.mux.Handle("/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db,
		s.tm)))

	s.mux.Handle("/sys_info", logReqMW(NewSysInfoHandler(
		logger.With(slog.String("handler", "sys_info")),
		s.tm,
		s.db,
		sysInfo)))

	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if !s.hub.register(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	s.mountView(ctx)

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) currentView() *chartview.View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view
}

// mountView replaces the current view with a freshly mounted one.
func (s *Server) mountView(ctx context.Context) *chartview.View {
	v := chartview.New(s.fetcher,
		chartview.WithLogger(s.logger.With(slog.String("component", "chart_view"))),
		chartview.WithOnLoaded(s.viewLoaded))

	s.viewMu.Lock()
	old := s.view
	s.view = v
	s.viewMu.Unlock()

	if old != nil {
		old.Unmount()
	}
	v.Mount(ctx)
	return v
}

func (s *Server) remount(r *http.Request) *chartview.View {
	// The fetch outlives the request that triggered it
	return s.mountView(context.WithoutCancel(r.Context()))
}

func (s *Server) viewLoaded(series chartview.Series) {
	buf, err := s.tm.Execute("doc_types_chart.html", chartview.LoadedDisplay(series))
	if err != nil {
		s.logger.Error("template execution failed", slog.Any("error", err))
	} else {
		s.hub.Send(buf.Bytes())
	}

	for _, fn := range s.onLoaded {
		fn(series)
	}
}

func (s *Server) Run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.GetPort())
	s.logger.Info("starting server...", slog.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", slog.Any("error", err))
		}

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", slog.Any("error", err))
		}
	}

	if err := s.tm.Close(); err != nil {
		s.logger.Warn("closing template watcher failed", slog.Any("error", err))
	}
}

func staticFilesHandler(extDir *string) (http.Handler, error) {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir)), nil
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}
	return http.FileServer(http.FS(fsys)), nil
}
