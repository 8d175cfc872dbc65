package www

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/icodeforyou/doctypes-dashboard/database"
	"github.com/icodeforyou/doctypes-dashboard/doctypes"
	"github.com/icodeforyou/doctypes-dashboard/slice"
)

type documentLogRequest struct {
	DocumentName     string `json:"document_name"`
	Source           string `json:"source"`
	DocTypePredicted string `json:"doc_type_predicted"`
	ProcessingTimeMs int    `json:"processing_time_ms"`
	Summary          string `json:"summary"`
	FileUrl          string `json:"file_url"`
}

func (r documentLogRequest) missingField() string {
	switch {
	case strings.TrimSpace(r.DocumentName) == "":
		return "document_name"
	case strings.TrimSpace(r.Source) == "":
		return "source"
	case strings.TrimSpace(r.DocTypePredicted) == "":
		return "doc_type_predicted"
	}
	return ""
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encoding response", slog.Any("error", err))
	}
}

// NewDocTypesHandler serves the document type distribution from the local
// store, in the same shape the chart view consumes.
func NewDocTypesHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := db.GetDocTypeCounts(r.Context())
		if err != nil {
			logger.Error("handling get_doc_types request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		records := slice.Map(rows, func(row database.DocTypeCountRow) doctypes.Record {
			return doctypes.Record{DocTypePredicted: row.DocTypePredicted, Count: row.Count}
		})
		writeJSON(logger, w, http.StatusOK, records)
	}
}

func NewSourcesHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		sources, err := db.GetSources(r.Context())
		if err != nil {
			logger.Error("handling get_sources request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(logger, w, http.StatusOK, sources)
	}
}

func NewDocumentLogHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req documentLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if field := req.missingField(); field != "" {
			http.Error(w, "missing field: "+field, http.StatusBadRequest)
			return
		}

		id, err := db.InsertDocumentLog(r.Context(), database.DocumentLogRow{
			DocumentName:     req.DocumentName,
			Source:           req.Source,
			DocTypePredicted: req.DocTypePredicted,
			ProcessingTimeMs: req.ProcessingTimeMs,
			Summary:          req.Summary,
			FileUrl:          req.FileUrl,
		})
		if err != nil {
			logger.Error("handling document_logs request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		logger.Info("document log inserted", slog.Int64("id", id), slog.String("docType", req.DocTypePredicted))
		writeJSON(logger, w, http.StatusCreated, map[string]int64{"id": id})
	}
}
