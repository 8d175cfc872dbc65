package www

import (
	"log/slog"
	"net/http"

	"github.com/icodeforyou/doctypes-dashboard/database"
	"github.com/icodeforyou/doctypes-dashboard/logging"
)

func NewLogHandler(logger *slog.Logger, db *database.Database, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		page := intOrDefault(r.URL, "page", 0)
		if page == 0 {
			buf, err := tm.Execute("log.html", nil)
			if err != nil {
				logger.Error("handling log request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			buf.WriteTo(w)
			return
		}

		pageSize := intOrDefault(r.URL, "pageSize", 25)
		var minLevel *string
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			minLevel = &lvl
		}

		e, err := db.GetLogEntries(r.Context(), logging.LevelFromString(minLevel), page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data := struct {
			Page     int
			PageSize int
			Entries  []database.LogEntryRow
		}{
			Page:     page + 1,
			PageSize: pageSize,
			Entries:  e,
		}

		buf, err := tm.Execute("log_entries.html", data)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		buf.WriteTo(w)
	}
}
