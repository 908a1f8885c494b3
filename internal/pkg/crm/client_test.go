package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetContactSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/concmd/GETCON/C/77015550101" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("XApiKey"); got != "secret" {
			t.Fatalf("unexpected api key %q", got)
		}
		_, _ = w.Write([]byte(`{"CNO":42,"CNAME":"Aida","TEL1":"77015550101","EMAIL":"aida@example.com"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/", "secret", time.Second)
	contact, err := client.GetContact(context.Background(), "77015550101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contact == nil || contact.Number != 42 || contact.Email != "aida@example.com" {
		t.Fatalf("unexpected contact %+v", contact)
	}
}

func TestGetContactNotFound(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"err body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`"ERR: contact not found"`))
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {},
		"404": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}

	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(h)
			t.Cleanup(server.Close)

			contact, err := NewClient(server.URL, "k", time.Second).GetContact(context.Background(), "9")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if contact != nil {
				t.Fatalf("expected nil contact, got %+v", contact)
			}
		})
	}
}

func TestGetContactServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, "k", time.Second).GetContact(context.Background(), "9")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestSaveContactCreateParsesNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/CONCMD/ADDCON" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["CNO"] != "0" || payload["CCODE"] != "C" || payload["FORDES"] != "Aida" {
			t.Fatalf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`"Saved. customer number 1207"`))
	}))
	t.Cleanup(server.Close)

	id, err := NewClient(server.URL, "k", time.Second).SaveContact(context.Background(), Contact{Name: "Aida", Phone: "77015550101"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1207 {
		t.Fatalf("expected 1207, got %d", id)
	}
}

func TestSaveContactCreateWithoutNumberFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"ok"`))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, "k", time.Second).SaveContact(context.Background(), Contact{Name: "Aida"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestSaveContactUpdateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"ERR duplicate phone"`))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, "k", time.Second).SaveContact(context.Background(), Contact{Number: 5, Name: "Aida"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestGetContactTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(server.URL, "k", 20*time.Millisecond).GetContact(context.Background(), "1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}

func TestGetContactNetworkClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "k", time.Second).GetContact(context.Background(), "1")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network classification, got %v", err)
	}
}
