package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"))
	}))
	defer srv.Close()

	got, err := FetchText(context.Background(), srv.URL+"/ok.srt", 1024)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if got != "1\n00:00:00,000 --> 00:00:01,000\nhello\n" {
		t.Fatalf("got %q", got)
	}

	got, err = FetchText(context.Background(), srv.URL+"/ok.srt", 1)
	if err != nil || got != "1" {
		t.Fatalf("limited fetch = %q, %v", got, err)
	}

	if _, err := FetchText(context.Background(), srv.URL+"/missing", 1024); err == nil {
		t.Fatal("expected error for 404")
	}
}
