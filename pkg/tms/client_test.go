package tms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler, pageSize int) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(
		config.APIConfig{URL: server.URL, Key: "test-key", Username: "user", Password: "pass"},
		config.FetchConfig{PageSize: pageSize, Timeout: 5 * time.Second},
		logger.NewNop(),
	)
	return client, server
}

func collectionHandler(t *testing.T, objects map[int64]map[string]interface{}, ids []int64, brokenIDs map[int64]bool) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/collection/count", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, `{"total": %d}`, len(ids))
	})

	mux.HandleFunc("/collection/ids", func(w http.ResponseWriter, r *http.Request) {
		page := 0
		pageSize := 2
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		fmt.Sscanf(r.URL.Query().Get("pageSize"), "%d", &pageSize)

		start := page * pageSize
		end := start + pageSize
		if start > len(ids) {
			start = len(ids)
		}
		if end > len(ids) {
			end = len(ids)
		}

		w.Write([]byte(`{"ids": [`))
		for i := start; i < end; i++ {
			if i > start {
				w.Write([]byte(","))
			}
			fmt.Fprintf(w, "%d", ids[i])
		}
		w.Write([]byte(`]}`))
	})

	mux.HandleFunc("/collection/objects/", func(w http.ResponseWriter, r *http.Request) {
		var id int64
		fmt.Sscanf(r.URL.Path, "/collection/objects/%d", &id)
		if brokenIDs[id] {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		fields, ok := objects[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"id": %d, "fields": {"title": %q}}`, id, fields["title"])
	})

	return mux
}

func TestClient_IteratesWholeCollection(t *testing.T) {
	objects := map[int64]map[string]interface{}{
		10: {"title": "First"},
		20: {"title": "Second"},
		30: {"title": "Third"},
	}
	client, _ := newTestClient(t, collectionHandler(t, objects, []int64{10, 20, 30}, nil), 2)
	ctx := context.Background()

	total, err := client.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total=3, got %d", total)
	}

	var titles []string
	for {
		more, err := client.HasMore(ctx)
		if err != nil {
			t.Fatalf("HasMore failed: %v", err)
		}
		if !more {
			break
		}
		obj, err := client.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if obj == nil {
			break
		}
		desc := obj.Describe([]string{"title"})
		titles = append(titles, desc["title"].(string))
	}

	if len(titles) != 3 || titles[0] != "First" || titles[2] != "Third" {
		t.Errorf("unexpected titles: %v", titles)
	}
}

func TestClient_NextAdvancesPastFailingObject(t *testing.T) {
	objects := map[int64]map[string]interface{}{
		10: {"title": "First"},
		30: {"title": "Third"},
	}
	broken := map[int64]bool{20: true}
	client, _ := newTestClient(t, collectionHandler(t, objects, []int64{10, 20, 30}, broken), 10)
	ctx := context.Background()

	if _, err := client.Next(ctx); err != nil {
		t.Fatalf("first Next failed: %v", err)
	}

	_, err := client.Next(ctx)
	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("expected ItemError, got %v", err)
	}
	if itemErr.ObjectID != 20 {
		t.Errorf("expected failing object 20, got %d", itemErr.ObjectID)
	}

	// The cursor moved past the broken object
	obj, err := client.Next(ctx)
	if err != nil {
		t.Fatalf("Next after skip failed: %v", err)
	}
	if obj == nil || obj.ID != 30 {
		t.Fatalf("expected object 30 after skip, got %+v", obj)
	}
}

func TestClient_CountFailureIsCollectionError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	client, _ := newTestClient(t, handler, 10)

	_, err := client.Count(context.Background())
	var collErr *CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError, got %v", err)
	}

	_, err = client.HasMore(context.Background())
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError from HasMore, got %v", err)
	}
}

func TestClient_NextReturnsSentinelWhenDrained(t *testing.T) {
	client, _ := newTestClient(t, collectionHandler(t, nil, nil, nil), 10)

	obj, err := client.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if obj != nil {
		t.Fatalf("expected end-of-collection sentinel, got %+v", obj)
	}
}
