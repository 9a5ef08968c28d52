package tryon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func TestPrecheckAllReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewAssetPrecheck(srv.Client(), 0)
	if err := p.Check(context.Background(), srv.URL+"/human.jpg", srv.URL+"/garment.jpg"); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
}

func TestPrecheckFailsOnMissingAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewAssetPrecheck(srv.Client(), 0)
	err := p.Check(context.Background(), srv.URL+"/human.jpg", srv.URL+"/missing.jpg")
	if !errors.Is(err, domain.ErrAssetUnreachable) {
		t.Fatalf("err = %v, want ErrAssetUnreachable", err)
	}
}

func TestPrecheckFailsOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := NewAssetPrecheck(nil, 0)
	err := p.Check(context.Background(), srv.URL+"/human.jpg")
	if !errors.Is(err, domain.ErrAssetUnreachable) {
		t.Fatalf("err = %v, want ErrAssetUnreachable", err)
	}
}
