package www

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/config"
	"github.com/icodeforyou/doctypes-dashboard/database"
	"github.com/icodeforyou/doctypes-dashboard/doctypes"
)

type gatedFetcher struct {
	calls   atomic.Int32
	records []doctypes.Record
	gate    chan struct{}
}

func (f *gatedFetcher) GetDocTypes(ctx context.Context) ([]doctypes.Record, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.records, nil
}

func newTestServer(t *testing.T, fetcher chartview.Fetcher, onLoaded ...func(chartview.Series)) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "www.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(db.Close)

	s, err := StartServer(ctx, db, fetcher, config.AppConfigApi{}, SysInfo{Version: "1.2.3", StartedAt: time.Now()}, onLoaded...)
	if err != nil {
		t.Fatalf("StartServer() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func waitLoaded(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.currentView().Wait(ctx); err != nil {
		t.Fatalf("waiting for view: %v", err)
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestDashboardWhileLoading(t *testing.T) {
	f := &gatedFetcher{gate: make(chan struct{})}
	defer close(f.gate)
	_, ts := newTestServer(t, f)

	status, body := get(t, ts.URL+"/dashboard")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	if !strings.Contains(body, "Loading...") {
		t.Errorf("expected loading placeholder, got %s", body)
	}
	if !strings.Contains(body, "width: 400px; height: 400px") {
		t.Errorf("expected a 400x400 container, got %s", body)
	}
	if !strings.Contains(body, `data-chart-components="PieController,ArcElement,Tooltip,Legend,Title"`) {
		t.Errorf("expected registered components, got %s", body)
	}

	status, body = get(t, ts.URL+"/chart")
	if status != http.StatusAccepted || strings.TrimSpace(body) != `{"loading":true}` {
		t.Errorf("got %d %s, want 202 loading", status, body)
	}

	if status, _ := get(t, ts.URL+"/chart.svg"); status != http.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", status)
	}
}

func TestDashboardLoaded(t *testing.T) {
	f := &gatedFetcher{records: []doctypes.Record{
		{DocTypePredicted: " Invoice ", Count: 5},
		{DocTypePredicted: "Memo", Count: 2},
	}}
	s, ts := newTestServer(t, f)
	waitLoaded(t, s)

	status, body := get(t, ts.URL+"/dashboard")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	if strings.Contains(body, "Loading...") {
		t.Error("did not expect the loading placeholder")
	}
	if !strings.Contains(body, `"labels":["Invoice","Memo"]`) {
		t.Errorf("expected chart config in page, got %s", body)
	}

	status, body = get(t, ts.URL+"/chart")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	var chart struct {
		Type string `json:"type"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Data            []float64 `json:"data"`
				BackgroundColor []string  `json:"backgroundColor"`
			} `json:"datasets"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &chart); err != nil {
		t.Fatalf("decoding chart: %v", err)
	}
	if chart.Type != "pie" || !reflect.DeepEqual(chart.Data.Labels, []string{"Invoice", "Memo"}) {
		t.Errorf("got %+v", chart)
	}
	if !reflect.DeepEqual(chart.Data.Datasets[0].Data, []float64{5, 2}) {
		t.Errorf("got data %v", chart.Data.Datasets[0].Data)
	}

	status, body = get(t, ts.URL+"/chart.svg")
	if status != http.StatusOK || !strings.Contains(body, "<svg") {
		t.Errorf("got %d, want an svg document", status)
	}

	if got := f.calls.Load(); got != 1 {
		t.Errorf("got %d fetches, want 1", got)
	}
}

func TestChartSVGNothingToDraw(t *testing.T) {
	s, ts := newTestServer(t, &gatedFetcher{records: []doctypes.Record{}})
	waitLoaded(t, s)

	if status, _ := get(t, ts.URL+"/chart.svg"); status != http.StatusUnprocessableEntity {
		t.Errorf("got status %d, want 422", status)
	}
}

func TestReloadRemounts(t *testing.T) {
	f := &gatedFetcher{records: []doctypes.Record{{DocTypePredicted: "Memo", Count: 1}}}
	var loaded atomic.Int32
	s, ts := newTestServer(t, f, func(chartview.Series) { loaded.Add(1) })
	waitLoaded(t, s)
	first := s.currentView()

	res, err := http.Post(ts.URL+"/chart/reload", "", nil)
	if err != nil {
		t.Fatalf("POST reload: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Errorf("got status %d, want 202", res.StatusCode)
	}
	waitLoaded(t, s)

	if f.calls.Load() != 2 {
		t.Errorf("got %d fetches, want 2", f.calls.Load())
	}
	if first.Loaded() {
		t.Error("expected the old view to be unmounted")
	}
	if loaded.Load() != 2 {
		t.Errorf("got %d onLoaded calls, want 2", loaded.Load())
	}

	if status, _ := get(t, ts.URL+"/chart/reload"); status != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want 405", status)
	}
}

func TestDocumentLogsFeedDocTypes(t *testing.T) {
	_, ts := newTestServer(t, &gatedFetcher{})

	for _, docType := range []string{"Memo", "Invoice", "Memo"} {
		body := `{"document_name":"a.pdf","source":"email","doc_type_predicted":"` + docType + `","processing_time_ms":10,"summary":"s","file_url":"f"}`
		res, err := http.Post(ts.URL+"/document_logs/", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST document_logs: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("got status %d, want 201", res.StatusCode)
		}
	}

	status, body := get(t, ts.URL+"/get_doc_types/")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	var records []doctypes.Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	want := []doctypes.Record{{DocTypePredicted: "Memo", Count: 2}, {DocTypePredicted: "Invoice", Count: 1}}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("got %v, want %v", records, want)
	}

	// The endpoint speaks the upstream contract
	got, err := doctypes.New(ts.URL+"/get_doc_types/", 0).GetDocTypes(context.Background())
	if err != nil || !reflect.DeepEqual(got, want) {
		t.Errorf("client got %v, %v", got, err)
	}

	status, body = get(t, ts.URL+"/get_sources/")
	if status != http.StatusOK || strings.TrimSpace(body) != `["email"]` {
		t.Errorf("got %d %s", status, body)
	}
}

func TestDocumentLogsValidation(t *testing.T) {
	_, ts := newTestServer(t, &gatedFetcher{})

	cases := map[string]string{
		"malformed":    `{"document_name":`,
		"missing type": `{"document_name":"a.pdf","source":"email","doc_type_predicted":"  "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := http.Post(ts.URL+"/document_logs/", "application/json", bytes.NewBufferString(body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			res.Body.Close()
			if res.StatusCode != http.StatusBadRequest {
				t.Errorf("got status %d, want 400", res.StatusCode)
			}
		})
	}
}

func TestWebSocketReceivesChartOnLoad(t *testing.T) {
	f := &gatedFetcher{
		records: []doctypes.Record{{DocTypePredicted: "Memo", Count: 3}},
		gate:    make(chan struct{}),
	}
	s, ts := newTestServer(t, f)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	close(f.gate)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), "doc-types-chart-config") || !strings.Contains(string(msg), `"labels":["Memo"]`) {
		t.Errorf("got %s, want the rendered chart fragment", msg)
	}
}

func TestLogAndSysInfoPages(t *testing.T) {
	s, ts := newTestServer(t, &gatedFetcher{records: []doctypes.Record{}})
	waitLoaded(t, s)

	if err := s.db.SaveLogEntry(context.Background(), database.LogEntryRow{
		Timestamp: time.Now(), Level: 8, Message: "error fetching document types", Attrs: "error=boom",
	}); err != nil {
		t.Fatalf("SaveLogEntry() error = %v", err)
	}

	status, body := get(t, ts.URL+"/log")
	if status != http.StatusOK || !strings.Contains(body, "log-entries") {
		t.Errorf("got %d %s", status, body)
	}

	status, body = get(t, ts.URL+"/log?page=1&pageSize=10&level=error")
	if status != http.StatusOK || !strings.Contains(body, "error fetching document types") {
		t.Errorf("got %d %s", status, body)
	}

	status, body = get(t, ts.URL+"/sys_info")
	if status != http.StatusOK || !strings.Contains(body, "1.2.3") || !strings.Contains(body, "Last backup") {
		t.Errorf("got %d %s", status, body)
	}

	status, body = get(t, ts.URL+"/")
	if status != http.StatusOK || !strings.Contains(body, "/dashboard") {
		t.Errorf("got %d %s", status, body)
	}
}

func seedDocuments(t *testing.T, s *Server) []int64 {
	t.Helper()
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	rows := []database.DocumentLogRow{
		{DocumentName: "Invoice_001.pdf", Timestamp: day.AddDate(0, 0, -1), Source: "email", DocTypePredicted: "Invoice", ProcessingTimeMs: 100, Summary: "first", FileUrl: "f1"},
		{DocumentName: "memo.txt", Timestamp: day, Source: "upload", DocTypePredicted: "Memo", ProcessingTimeMs: 30, Summary: "second", FileUrl: "f2"},
		{DocumentName: "invoice_002.pdf", Timestamp: day.AddDate(0, 0, 1), Source: "email", DocTypePredicted: "Invoice", ProcessingTimeMs: 300, Summary: "third", FileUrl: "f3"},
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		id, err := s.db.InsertDocumentLog(context.Background(), r)
		if err != nil {
			t.Fatalf("InsertDocumentLog() error = %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestAvgProcessingTime(t *testing.T) {
	s, ts := newTestServer(t, &gatedFetcher{})
	seedDocuments(t, s)

	status, body := get(t, ts.URL+"/get_avg_processing_time/")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	want := `[{"doc_type":"Invoice","avg_processing_time":200},{"doc_type":"Memo","avg_processing_time":30}]`
	if strings.TrimSpace(body) != want {
		t.Errorf("got %s, want %s", body, want)
	}
}

func TestRecentDocuments(t *testing.T) {
	s, ts := newTestServer(t, &gatedFetcher{})
	seedDocuments(t, s)

	names := func(body string) []string {
		var docs []struct {
			DocumentName string `json:"document_name"`
			Summary      string `json:"summary"`
			FileUrl      string `json:"file_url"`
		}
		if err := json.Unmarshal([]byte(body), &docs); err != nil {
			t.Fatalf("decoding %s: %v", body, err)
		}
		result := []string{}
		for _, d := range docs {
			result = append(result, d.DocumentName)
		}
		return result
	}

	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"newest first", "", []string{"invoice_002.pdf", "memo.txt", "Invoice_001.pdf"}},
		{"paged", "?page_num=2&page_size=2", []string{"Invoice_001.pdf"}},
		{"source", "?selected_source=email&selected_doc_type=All", []string{"invoice_002.pdf", "Invoice_001.pdf"}},
		{"doc type", "?selected_doc_type=Memo", []string{"memo.txt"}},
		{"date range covers the end day", "?date_start=2024-03-09&date_end=2024-03-10", []string{"memo.txt", "Invoice_001.pdf"}},
		{"file name", "?file_name_input=INVOICE_00", []string{"invoice_002.pdf", "Invoice_001.pdf"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, ts.URL+"/recent_documents/"+tc.query)
			if status != http.StatusOK {
				t.Fatalf("got status %d: %s", status, body)
			}
			if got := names(body); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	if status, _ := get(t, ts.URL+"/recent_documents/?date_start=yesterday"); status != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", status)
	}
}

func TestDocumentDetailsAndDelete(t *testing.T) {
	s, ts := newTestServer(t, &gatedFetcher{})
	ids := seedDocuments(t, s)
	url := func(prefix string, id int64) string {
		return ts.URL + prefix + strconv.FormatInt(id, 10)
	}

	status, body := get(t, url("/get_details_by_id/", ids[1]))
	if status != http.StatusOK || !strings.Contains(body, `"summary":"second"`) || !strings.Contains(body, `"processing_time_ms":30`) {
		t.Errorf("got %d %s", status, body)
	}

	if status, _ := get(t, url("/delete_document_by_id/", ids[1])); status != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want 405", status)
	}

	del := func(id int64) (int, string) {
		req, err := http.NewRequest(http.MethodDelete, url("/delete_document_by_id/", id), nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE: %v", err)
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		return res.StatusCode, strings.TrimSpace(string(b))
	}

	if status, body := del(ids[1]); status != http.StatusOK || body != `{"message":"Document deleted successfully."}` {
		t.Errorf("got %d %s", status, body)
	}
	if status, _ := del(ids[1]); status != http.StatusNotFound {
		t.Errorf("got status %d, want 404 for a deleted document", status)
	}
	if status, _ := get(t, url("/get_details_by_id/", ids[1])); status != http.StatusNotFound {
		t.Errorf("got status %d, want 404", status)
	}
	if status, _ := get(t, ts.URL+"/get_details_by_id/abc"); status != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", status)
	}

	status, body = get(t, ts.URL+"/get_doc_types/")
	if status != http.StatusOK || strings.TrimSpace(body) != `[{"doc_type_predicted":"Invoice","count":2}]` {
		t.Errorf("got %d %s, want the deleted memo gone from the distribution", status, body)
	}
}
