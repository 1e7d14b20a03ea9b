package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/larkmail/keepd/internal/directory"
)

type fakeDirectoryStore struct {
	sets    map[uint32]*directory.PrincipalSet
	saveErr error
}

func newFakeDirectoryStore() *fakeDirectoryStore {
	return &fakeDirectoryStore{sets: make(map[uint32]*directory.PrincipalSet)}
}

func (f *fakeDirectoryStore) Get(_ context.Context, id uint32) (*directory.PrincipalSet, error) {
	set, ok := f.sets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return set, nil
}

func (f *fakeDirectoryStore) Save(_ context.Context, id uint32, set *directory.PrincipalSet) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sets[id] = set
	return nil
}

func directoryTestRouter(store DirectoryStore) http.Handler {
	s := &Server{directory: store, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	r := chi.NewRouter()
	r.Route("/directory/principals/{id}", func(pr chi.Router) {
		pr.Get("/", s.handleGetPrincipal)
		pr.Put("/", s.handlePutPrincipal)
	})
	return r
}

func TestHandleGetPrincipalReturnsStoredSet(t *testing.T) {
	store := newFakeDirectoryStore()
	store.sets[7] = directory.NewPrincipalSet(7, directory.Individual)
	store.sets[7].Fields[directory.FieldName] = directory.NewStringValue("ada")

	r := directoryTestRouter(store)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/directory/principals/7/", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Decode generically: PrincipalSet.UnmarshalJSON discards "id".
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got["id"] != float64(7) {
		t.Errorf("expected id 7, got %v", got["id"])
	}
}

func TestHandleGetPrincipalRejectsNonNumericID(t *testing.T) {
	r := directoryTestRouter(newFakeDirectoryStore())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/directory/principals/not-a-number/", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlePutPrincipalSaves(t *testing.T) {
	store := newFakeDirectoryStore()
	r := directoryTestRouter(store)

	body := `{"id":3,"type":"individual","name":"grace"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/directory/principals/3/", strings.NewReader(body))
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := store.sets[3]; !ok {
		t.Fatal("expected the principal to be saved")
	}
}
