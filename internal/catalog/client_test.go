package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRestyClient_GetArtist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artist/a1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"a1","name":"Boards of Canada","albums":[],"singles":[]}`))
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL)
	artist, err := client.GetArtist(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Boards of Canada" {
		t.Errorf("Name = %q", artist.Name)
	}
}

func TestRestyClient_GetArtist_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL)
	client.http.SetRetryCount(0)

	_, err := client.GetArtist(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
	var catalogErr *ExternalCatalogError
	if !errorsAs(err, &catalogErr) {
		t.Errorf("expected *ExternalCatalogError, got %T", err)
	}
}

func errorsAs(err error, target **ExternalCatalogError) bool {
	e, ok := err.(*ExternalCatalogError)
	if !ok {
		return false
	}
	*target = e
	return true
}
