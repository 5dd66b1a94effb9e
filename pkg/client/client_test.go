package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginStoresTokenAndCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad login body: %v", err)
		}
		if req["email"] != "ada@example.com" {
			t.Fatalf("unexpected email %q", req["email"])
		}
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "rt-1", Path: "/", HttpOnly: true})
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken": "at-1",
			"user":        map[string]any{"id": 7, "email": "ada@example.com", "roles": []string{"editor"}, "status": "active"},
		})
	})
	mux.HandleFunc("GET /v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": 7, "email": "ada@example.com"}})
	})
	mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("refreshToken")
		if err != nil || ck.Value != "rt-1" {
			t.Fatalf("logout did not carry the refresh cookie: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "logged out"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	u, err := c.Login(context.Background(), "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.ID != 7 || u.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if c.AccessToken() != "at-1" {
		t.Fatalf("access token not stored, got %q", c.AccessToken())
	}

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me failed: %v", err)
	}

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if c.AccessToken() != "" {
		t.Fatal("access token should be cleared after logout")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/documents", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id": 3, "name": req["name"], "xmlContent": req["xmlContent"], "version": 1,
		})
	})
	mux.HandleFunc("PUT /v1/documents/3", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["name"]; ok {
			t.Fatal("nil name must be omitted from the update body")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 3, "name": "erd", "xmlContent": req["xmlContent"], "version": 2,
		})
	})
	mux.HandleFunc("GET /v1/documents/3/versions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"versions": []map[string]any{{"version": 1, "xmlContent": "<a/>"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)

	doc, err := c.CreateDocument(context.Background(), "erd", "<a/>")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if doc.ID != 3 || doc.Version != 1 {
		t.Fatalf("unexpected document %+v", doc)
	}

	body := "<b/>"
	doc, err = c.UpdateDocument(context.Background(), 3, nil, &body)
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}
	if doc.Version != 2 {
		t.Fatalf("expected version 2 after content change, got %d", doc.Version)
	}

	versions, err := c.DocumentVersions(context.Background(), 3)
	if err != nil {
		t.Fatalf("DocumentVersions failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Fatalf("unexpected versions %+v", versions)
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/connections/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "connection not found"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := newTestClient(t, srv)
	c.setAccess("whatever") // a 404 must not trigger refresh

	_, err := c.GetConnection(context.Background(), 9)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "connection not found" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
