package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/catalogsync/internal/catalog/catalogtest"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

func TestFetchAndReplaceDocument(t *testing.T) {
	seed := models.NewCatalogDocument()
	seed.Categories["songs"] = &models.Category{ID: "songs", Name: "Songs"}
	srv := catalogtest.NewServer(t, seed)

	client := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	doc, err := client.FetchDocument(ctx)
	if err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if doc.Categories["songs"] == nil {
		t.Fatal("Expected seeded category")
	}

	doc.Modules["v1"] = &models.Module{ID: "v1", Title: "Alphabet Song"}
	if err := client.ReplaceDocument(ctx, doc); err != nil {
		t.Fatalf("ReplaceDocument failed: %v", err)
	}

	stored := srv.Document(t)
	if stored.Modules["v1"] == nil || stored.Modules["v1"].Title != "Alphabet Song" {
		t.Error("Expected module v1 to be stored")
	}
}

func TestReplaceDocumentPayloadTooLarge(t *testing.T) {
	srv := catalogtest.NewServer(t, nil)
	srv.SetMaxBody(64)

	client := NewClient(srv.URL, "", time.Second)
	doc := models.NewCatalogDocument()
	doc.Modules["v1"] = &models.Module{ID: "v1", Title: "A title long enough to exceed the tiny limit"}

	err := client.ReplaceDocument(context.Background(), doc)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadStatusErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		tooLarge  bool
		errorCode string
	}{
		{name: "413 status", status: http.StatusRequestEntityTooLarge, body: "too big", tooLarge: true},
		{name: "structured code on 400", status: http.StatusBadRequest, body: `{"error":{"code":"payload_too_large","version":1}}`, tooLarge: true, errorCode: CodePayloadTooLarge},
		{name: "unknown contract version", status: http.StatusBadRequest, body: `{"error":{"code":"payload_too_large","version":2}}`, errorCode: CodePayloadTooLarge},
		{name: "unversioned code", status: http.StatusBadRequest, body: `{"error":{"code":"payload_too_large"}}`, errorCode: CodePayloadTooLarge},
		{name: "body text is not trusted", status: http.StatusInternalServerError, body: "request entity too large"},
		{name: "auth failure", status: http.StatusUnauthorized, body: `{"error":{"code":"unauthorized","version":1}}`, errorCode: "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL, "", time.Second).ReplaceDocument(context.Background(), models.NewCatalogDocument())
			if errors.Is(err, ErrPayloadTooLarge) != tt.tooLarge {
				t.Errorf("Expected tooLarge=%v, got error %v", tt.tooLarge, err)
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Expected *StatusError, got %T", err)
			}
			if statusErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, statusErr.StatusCode)
			}
			if statusErr.Code != tt.errorCode {
				t.Errorf("Expected code %q, got %q", tt.errorCode, statusErr.Code)
			}
		})
	}
}

func TestAuthorizationHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL+"/", "secret", time.Second).FetchDocument(context.Background()); err != nil {
		t.Fatalf("FetchDocument failed: %v", err)
	}
	if got != "Bearer secret" {
		t.Errorf("Expected bearer header, got %q", got)
	}
}

func TestUserEndpoints(t *testing.T) {
	srv := catalogtest.NewServer(t, nil)
	client := NewClient(srv.URL, "", time.Second)
	ctx := context.Background()

	created, err := client.CreateUser(ctx, &models.User{ID: "u1", Name: "Ada", Email: "ada@example.org"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID != "u1" {
		t.Errorf("Expected created user u1, got %s", created.ID)
	}
	if srv.Document(t).Users["u1"] == nil {
		t.Error("Expected user stored remotely")
	}

	if err := client.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := client.DeleteUser(ctx, "u1"); err == nil {
		t.Error("Expected error deleting missing user")
	}
}

func TestFetchDocumentUnreachable(t *testing.T) {
	srv := catalogtest.NewServer(t, nil)
	srv.SetDown(true)

	_, err := NewClient(srv.URL, "", time.Second).FetchDocument(context.Background())
	if err == nil {
		t.Fatal("Expected error when remote store is down")
	}
}
