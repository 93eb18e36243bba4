package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/apierrors"
	"github.com/jacobparis/registry-registry/internal/kv"
	"github.com/jacobparis/registry-registry/internal/model"
)

func newImportStore(t *testing.T, opts Options) (*Store, *kv.MemoryStore) {
	t.Helper()
	if opts.Protocol == "" {
		opts.Protocol = "https"
	}
	if opts.RootDomain == "" {
		opts.RootDomain = "example.com"
	}
	backend := kv.NewMemoryStore()
	return NewStore(backend, opts, zap.NewNop()), backend
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestCreateTenantFromURL_StylesConvention(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Component{{Name: "button"}, {Name: "card"}})
	})
	mux.HandleFunc("/styles/index.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []styleInfo{{Name: "new-york"}, {Name: "default"}})
	})
	mux.HandleFunc("/styles/default/button.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.Component{
			Name:        "button",
			Type:        model.ItemTypeUI,
			Description: "enriched button",
			Files:       []model.File{{Path: "ui/button.tsx", Content: "export function Button() {}"}},
		})
	})
	mux.HandleFunc("/styles/default/card.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store, backend := newImportStore(t, Options{})
	ctx := context.Background()

	redirect, err := store.CreateTenantFromURL(ctx, CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example.com", redirect)

	tenant, err := store.GetTenant(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	require.Len(t, tenant.Registry, 2)

	// button was enriched through the default style document.
	assert.Equal(t, "enriched button", tenant.Registry[0].Description)
	require.Len(t, tenant.Registry[0].Files, 1)

	// card's enrichment 404ed and degraded to the index entry.
	assert.Equal(t, "card", tenant.Registry[1].Name)
	assert.Empty(t, tenant.Registry[1].Description)

	// Per-component keys were written for both.
	for _, name := range []string{"button", "card"} {
		_, err := backend.Get(ctx, "component:acme:"+name)
		assert.NoError(t, err, "component key for %s", name)
	}
}

func TestCreateTenantFromURL_PerComponentFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			writeJSON(w, []model.Component{{Name: "button"}})
		case "/button":
			writeJSON(w, model.Component{Name: "button", Description: "from fallback"})
		default:
			// Includes /styles/index.json: no styles convention here.
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store, _ := newImportStore(t, Options{})
	ctx := context.Background()

	_, err := store.CreateTenantFromURL(ctx, CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.NoError(t, err)

	component, err := store.GetComponent(ctx, "acme", "button")
	require.NoError(t, err)
	require.NotNil(t, component)
	assert.Equal(t, "from fallback", component.Description)
}

func TestCreateTenantFromURL_RequiresJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a registry</html>"))
	}))
	defer srv.Close()

	store, _ := newImportStore(t, Options{})

	_, err := store.CreateTenantFromURL(context.Background(), CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.Error(t, err)
	assert.True(t, apierrors.IsUpstream(err))
	assert.Contains(t, err.Error(), "content type")
}

func TestCreateTenantFromURL_UpstreamStatusPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	store, _ := newImportStore(t, Options{})

	_, err := store.CreateTenantFromURL(context.Background(), CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.Error(t, err)

	var ue *apierrors.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.StatusCode)
	assert.False(t, ue.Timeout)
}

func TestCreateTenantFromURL_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, []model.Component{})
	}))
	defer srv.Close()

	store, _ := newImportStore(t, Options{
		FetchTimeout:    20 * time.Millisecond,
		PerFetchTimeout: 20 * time.Millisecond,
	})

	_, err := store.CreateTenantFromURL(context.Background(), CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.Error(t, err)

	var ue *apierrors.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Timeout)
}

func TestCreateTenantFromURL_SlowEnrichmentDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Component{{Name: "slow"}, {Name: "fast"}})
	})
	mux.HandleFunc("/styles/index.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []styleInfo{{Name: "default"}})
	})
	mux.HandleFunc("/styles/default/slow.json", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, model.Component{Name: "slow", Description: "too late"})
	})
	mux.HandleFunc("/styles/default/fast.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.Component{Name: "fast", Description: "enriched"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// The per-fetch budget trips on one component while the overall import
	// window stays open.
	store, _ := newImportStore(t, Options{
		FetchTimeout:    2 * time.Second,
		PerFetchTimeout: 30 * time.Millisecond,
	})
	ctx := context.Background()

	_, err := store.CreateTenantFromURL(ctx, CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  srv.URL,
	})
	require.NoError(t, err)

	slow, err := store.GetComponent(ctx, "acme", "slow")
	require.NoError(t, err)
	require.NotNil(t, slow)
	assert.Empty(t, slow.Description)

	fast, err := store.GetComponent(ctx, "acme", "fast")
	require.NoError(t, err)
	require.NotNil(t, fast)
	assert.Equal(t, "enriched", fast.Description)
}

func TestCreateTenantFromURL_ValidatesInput(t *testing.T) {
	store, _ := newImportStore(t, Options{})
	ctx := context.Background()

	_, err := store.CreateTenantFromURL(ctx, CreateTenantFromURLParams{Icon: "📦", URL: "http://x"})
	assert.True(t, apierrors.IsValidation(err))

	_, err = store.CreateTenantFromURL(ctx, CreateTenantFromURLParams{ID: "Bad Name!", Icon: "📦", URL: "http://x"})
	assert.True(t, apierrors.IsValidation(err))
}

func TestCreateTenantFromURL_NameTaken(t *testing.T) {
	store, _ := newImportStore(t, Options{})
	mustCreateTenant(t, store, "acme", "[]")

	_, err := store.CreateTenantFromURL(context.Background(), CreateTenantFromURLParams{
		ID:   "acme",
		Icon: "📦",
		URL:  "http://irrelevant.invalid",
	})
	assert.True(t, apierrors.IsConflict(err))
}
