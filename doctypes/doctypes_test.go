package doctypes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestGetDocTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("got method %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"doc_type_predicted":" Invoice ","count":5},{"doc_type_predicted":"Memo","count":2,"extra":true}]`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, 0).GetDocTypes(context.Background())
	if err != nil {
		t.Fatalf("GetDocTypes() error = %v", err)
	}
	want := []Record{{" Invoice ", 5}, {"Memo", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGetDocTypesFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"`))
		},
		"wrong shape": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"doc_type_predicted":"Memo"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			if _, err := New(srv.URL, 0).GetDocTypes(context.Background()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestGetDocTypesConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, 0).GetDocTypes(context.Background()); err == nil {
		t.Error("expected an error for a closed server")
	}
}

func TestGetDocTypesRejectsShape(t *testing.T) {
	cases := map[string]string{
		"null body":          `null`,
		"missing label":      `[{"count":3}]`,
		"null label":         `[{"doc_type_predicted":null,"count":3}]`,
		"null record":        `[{"doc_type_predicted":"Memo","count":1},null]`,
		"label not a string": `[{"doc_type_predicted":7,"count":3}]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			got, err := New(srv.URL, 0).GetDocTypes(context.Background())
			if err == nil {
				t.Fatalf("got %v, want an error", got)
			}
			if name != "label not a string" && !errors.Is(err, ErrUnexpectedShape) {
				t.Errorf("got %v, want ErrUnexpectedShape", err)
			}
		})
	}
}

func TestGetDocTypesEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, 0).GetDocTypes(context.Background())
	if err != nil {
		t.Fatalf("GetDocTypes() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty slice", got)
	}
}
