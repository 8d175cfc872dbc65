package www

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/render"
)

type loadingResponse struct {
	Loading bool `json:"loading"`
}

func NewChartHandler(logger *slog.Logger, view func() *chartview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		var body any
		display := view().Render()
		if display.Loading {
			w.WriteHeader(http.StatusAccepted)
			body = loadingResponse{Loading: true}
		} else {
			body = display.Chart
		}

		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Error("handling chart request", slog.Any("error", err))
			http.Error(w, "unable to encode chart", http.StatusInternalServerError)
		}
	}
}

func NewChartSVGHandler(logger *slog.Logger, view func() *chartview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		state := view().State()
		if !state.IsValid() {
			http.Error(w, "Loading...", http.StatusServiceUnavailable)
			return
		}

		width := intOrDefault(r.URL, "width", chartview.ContainerWidth)
		height := intOrDefault(r.URL, "height", chartview.ContainerHeight)
		var buf bytes.Buffer
		err := render.PieSVG(&buf, state.Value(), chartview.Title, width, height)
		if errors.Is(err, render.ErrNothingToDraw) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			logger.Error("handling chart svg request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		buf.WriteTo(w)
	}
}

func NewReloadHandler(logger *slog.Logger, remount func(r *http.Request) *chartview.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		remount(r)
		logger.Info("chart view remounted")
		w.WriteHeader(http.StatusAccepted)
	}
}

func NewDashboardHandler(logger *slog.Logger, view func() *chartview.View, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		buf, err := tm.Execute("doc_types.html", view().Render())
		if err != nil {
			logger.Error("handling dashboard request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		buf.WriteTo(w)
	}
}
