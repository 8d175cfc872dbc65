package www

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/database"
	"github.com/icodeforyou/doctypes-dashboard/slice"
)

type avgProcessingTimeResponse struct {
	DocType           string  `json:"doc_type"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}

type documentResponse struct {
	Id               int64     `json:"id"`
	DocumentName     string    `json:"document_name"`
	Source           string    `json:"source"`
	DocTypePredicted string    `json:"doc_type_predicted"`
	ProcessingTimeMs int       `json:"processing_time_ms"`
	Summary          string    `json:"summary"`
	FileUrl          string    `json:"file_url"`
	Timestamp        time.Time `json:"timestamp"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toDocumentResponse(r database.DocumentLogRow) documentResponse {
	return documentResponse{
		Id:               r.Id,
		DocumentName:     r.DocumentName,
		Source:           r.Source,
		DocTypePredicted: r.DocTypePredicted,
		ProcessingTimeMs: r.ProcessingTimeMs,
		Summary:          r.Summary,
		FileUrl:          r.FileUrl,
		Timestamp:        r.Timestamp,
	}
}

// parseDay accepts a date or an RFC 3339 timestamp. A plain date used as an
// upper bound covers the whole day.
func parseDay(value string, upper bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid document id %q", r.PathValue("id"))
	}
	return id, nil
}

func NewAvgProcessingTimeHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := db.GetAvgProcessingTime(r.Context())
		if err != nil {
			logger.Error("handling get_avg_processing_time request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(logger, w, http.StatusOK, slice.Map(rows, func(row database.AvgProcessingTimeRow) avgProcessingTimeResponse {
			return avgProcessingTimeResponse{DocType: row.DocTypePredicted, AvgProcessingTime: row.AvgProcessingTime}
		}))
	}
}

func NewRecentDocumentsHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		from, err := parseDay(q.Get("date_start"), false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		to, err := parseDay(q.Get("date_end"), true)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		filter := database.DocumentFilter{
			Source:       q.Get("selected_source"),
			DocType:      q.Get("selected_doc_type"),
			From:         from,
			To:           to,
			NameContains: q.Get("file_name_input"),
		}
		page := intOrDefault(r.URL, "page_num", 1)
		pageSize := intOrDefault(r.URL, "page_size", 10)

		rows, err := db.GetRecentDocuments(r.Context(), filter, page, pageSize)
		if err != nil {
			logger.Error("handling recent_documents request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(logger, w, http.StatusOK, slice.Map(rows, toDocumentResponse))
	}
}

func NewDocumentDetailsHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		row, err := db.GetDocumentLog(r.Context(), id)
		if errors.Is(err, database.ErrDocumentNotFound) {
			writeJSON(logger, w, http.StatusNotFound, messageResponse{Message: "Document not found"})
			return
		}
		if err != nil {
			logger.Error("handling get_details_by_id request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(logger, w, http.StatusOK, toDocumentResponse(row))
	}
}

func NewDeleteDocumentHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id, err := pathID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = db.DeleteDocumentLog(r.Context(), id)
		if errors.Is(err, database.ErrDocumentNotFound) {
			writeJSON(logger, w, http.StatusNotFound, messageResponse{Message: "Failed to delete document."})
			return
		}
		if err != nil {
			logger.Error("handling delete_document_by_id request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		logger.Info("document log deleted", slog.Int64("id", id))
		writeJSON(logger, w, http.StatusOK, messageResponse{Message: "Document deleted successfully."})
	}
}
