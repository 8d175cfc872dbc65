package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentLogRow struct {
	Id               int64
	DocumentName     string
	Timestamp        time.Time
	Source           string
	DocTypePredicted string
	ProcessingTimeMs int
	Summary          string
	FileUrl          string
}

type DocTypeCountRow struct {
	DocTypePredicted string
	Count            int
}

type AvgProcessingTimeRow struct {
	DocTypePredicted  string
	AvgProcessingTime float64
}

// DocumentFilter narrows GetRecentDocuments. Empty fields and the value
// "All" for Source and DocType do not filter.
type DocumentFilter struct {
	Source       string
	DocType      string
	From         time.Time // inclusive
	To           time.Time // exclusive
	NameContains string
}

const documentLogColumns = `id, document_name, timestamp, source, doc_type_predicted, processing_time_ms, summary, file_url`

func (d *Database) InsertDocumentLog(ctx context.Context, r DocumentLogRow) (int64, error) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	res, err := d.write.ExecContext(ctx, `
		INSERT INTO document_logs (document_name, timestamp, source, doc_type_predicted, processing_time_ms, summary, file_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.DocumentName,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Source,
		r.DocTypePredicted,
		r.ProcessingTimeMs,
		r.Summary,
		r.FileUrl)
	if err != nil {
		return 0, fmt.Errorf("inserting document log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document log id: %w", err)
	}
	return id, nil
}

// GetDocTypeCounts returns one row per predicted document type, most frequent first.
func (d *Database) GetDocTypeCounts(ctx context.Context) ([]DocTypeCountRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT doc_type_predicted, COUNT(id) AS count
		FROM document_logs
		GROUP BY doc_type_predicted
		ORDER BY count DESC, doc_type_predicted ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetching doc type counts: %w", err)
	}
	defer rows.Close()

	result := []DocTypeCountRow{}
	for rows.Next() {
		var r DocTypeCountRow
		if err := rows.Scan(&r.DocTypePredicted, &r.Count); err != nil {
			return nil, fmt.Errorf("scanning doc type count: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading doc type count rows: %w", err)
	}

	return result, nil
}

func (d *Database) GetSources(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT DISTINCT source FROM document_logs
		WHERE source IS NOT NULL
		ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("fetching sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// GetAvgProcessingTime returns the mean processing time per document type, by name.
func (d *Database) GetAvgProcessingTime(ctx context.Context) ([]AvgProcessingTimeRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT doc_type_predicted, AVG(processing_time_ms)
		FROM document_logs
		GROUP BY doc_type_predicted
		ORDER BY doc_type_predicted ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetching avg processing time: %w", err)
	}
	defer rows.Close()

	result := []AvgProcessingTimeRow{}
	for rows.Next() {
		var r AvgProcessingTimeRow
		if err := rows.Scan(&r.DocTypePredicted, &r.AvgProcessingTime); err != nil {
			return nil, fmt.Errorf("scanning avg processing time: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading avg processing time rows: %w", err)
	}

	return result, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetRecentDocuments returns the documents matching filter, newest first.
// page starts at 1.
func (d *Database) GetRecentDocuments(ctx context.Context, filter DocumentFilter, page, pageSize int) ([]DocumentLogRow, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	var where []string
	var args []any
	if filter.Source != "" && filter.Source != "All" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.DocType != "" && filter.DocType != "All" {
		where = append(where, "doc_type_predicted = ?")
		args = append(args, filter.DocType)
	}
	if !filter.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	if filter.NameContains != "" {
		// LIKE is case insensitive for ASCII in SQLite
		where = append(where, `document_name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
	}

	query := "SELECT " + documentLogColumns + " FROM document_logs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := d.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching recent documents: %w", err)
	}
	defer rows.Close()

	result := []DocumentLogRow{}
	for rows.Next() {
		r, err := scanDocumentLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading recent document rows: %w", err)
	}

	return result, nil
}

func (d *Database) GetDocumentLog(ctx context.Context, id int64) (DocumentLogRow, error) {
	row := d.read.QueryRowContext(ctx, "SELECT "+documentLogColumns+" FROM document_logs WHERE id = ?", id)
	r, err := scanDocumentLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentLogRow{}, ErrDocumentNotFound
	}
	return r, err
}

// DeleteDocumentLog returns ErrDocumentNotFound when there is no row with id.
func (d *Database) DeleteDocumentLog(ctx context.Context, id int64) error {
	res, err := d.write.ExecContext(ctx, "DELETE FROM document_logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document log %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document log %d: %w", id, err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumentLog(s rowScanner) (DocumentLogRow, error) {
	var r DocumentLogRow
	var ts string
	err := s.Scan(&r.Id, &r.DocumentName, &ts, &r.Source, &r.DocTypePredicted, &r.ProcessingTimeMs, &r.Summary, &r.FileUrl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning document log: %w", err)
	}
	r.Timestamp, err = time.Parse(time.RFC3339, ts)
	if err != nil {
		return r, fmt.Errorf("parsing document timestamp: %w", err)
	}
	return r, nil
}
