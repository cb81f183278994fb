package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/thing":
			json.NewEncoder(w).Encode(payload{Name: "widget"})
		case r.Method == "POST" && r.URL.Path == "/thing":
			var in payload
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(in)
		case r.Method == "DELETE" && r.URL.Path == "/thing":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "thing not found"})
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	t.Run("get decodes response", func(t *testing.T) {
		var out payload
		if err := client.Get(ctx, "/thing", &out); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if out.Name != "widget" {
			t.Errorf("name = %q, want widget", out.Name)
		}
	})

	t.Run("post sends body", func(t *testing.T) {
		var out payload
		if err := client.Post(ctx, "/thing", payload{Name: "gadget"}, &out); err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		if out.Name != "gadget" {
			t.Errorf("name = %q, want gadget", out.Name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := client.Delete(ctx, "/thing"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("server error payload surfaces in message", func(t *testing.T) {
		err := client.Get(ctx, "/missing", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "thing not found") {
			t.Errorf("error = %v, want status and server message", err)
		}
	})
}

func TestClientErrorDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "content failed schema validation",
			"details": "/sections/0: missing properties: 'title'",
		})
	}))
	defer server.Close()

	err := NewClient(server.URL).Get(context.Background(), "/x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "missing properties") {
		t.Errorf("error = %v, want details included", err)
	}
}
