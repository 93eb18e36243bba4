package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jacobparis/registry-registry/internal/apierrors"
	"github.com/jacobparis/registry-registry/internal/model"
	"github.com/jacobparis/registry-registry/internal/sanitize"
	"github.com/jacobparis/registry-registry/internal/schema"
)

// httpDoer is the outbound HTTP capability used for remote registry
// fetches. Timeouts come from request contexts, not the client.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func defaultHTTPClient() httpDoer {
	return &http.Client{}
}

// CreateTenantFromURLParams carries the caller input for tenant creation
// from a remote registry URL.
type CreateTenantFromURLParams struct {
	ID          string
	Icon        string
	URL         string
	Name        string
	Description string
}

// styleInfo is one entry of a remote registry's styles index.
type styleInfo struct {
	Name string `json:"name"`
}

// CreateTenantFromURL creates a tenant by fetching a remote registry
// document, enriching each listed component with its full definition, and
// persisting the aggregate followed by the per-component records.
//
// Enrichment tries the styles convention first (<base>/styles/<style>/
// <name>.json for the "default" style or the first one listed) and falls
// back to <base>/<name> per component. Any single enrichment failure
// degrades to the unenriched entry; only the top-level fetch is fatal.
func (s *Store) CreateTenantFromURL(ctx context.Context, p CreateTenantFromURLParams) (string, error) {
	redirect, err := s.createTenantFromURL(ctx, p)
	s.record("create_tenant_from_url", err)
	return redirect, err
}

func (s *Store) createTenantFromURL(ctx context.Context, p CreateTenantFromURLParams) (string, error) {
	if p.ID == "" || p.Icon == "" || p.URL == "" {
		return "", apierrors.Validation("registry name, icon, and registry URL are required")
	}
	if !schema.ValidIcon(p.Icon) {
		return "", apierrors.Validation("please enter a valid emoji (maximum 10 characters)")
	}
	if sanitize.ID(p.ID) != p.ID {
		return "", apierrors.Validation("registry name can only have lowercase letters, numbers, and hyphens")
	}

	if existing, err := s.getTenantRaw(ctx, p.ID); err != nil {
		return "", err
	} else if existing != nil {
		return "", apierrors.TenantExists(p.ID)
	}

	registry, err := s.fetchRegistryIndex(ctx, p.URL)
	if err != nil {
		return "", err
	}

	registry = s.enrichComponents(ctx, p.URL, registry)

	// Aggregate first, then per-component keys: a partial failure past this
	// point leaves components lazily re-derivable from the aggregate.
	tenant := s.newTenant(p.ID, p.Icon, p.Name, p.Description, registry)
	if err := s.putTenant(ctx, p.ID, tenant); err != nil {
		return "", err
	}

	for _, c := range tenant.Registry {
		data, err := json.Marshal(c)
		if err != nil {
			s.logger.Warn("skipping unencodable component",
				zap.String("tenant", p.ID),
				zap.String("component", c.Name),
				zap.Error(err),
			)
			continue
		}
		if err := s.backend.Set(ctx, componentKey(p.ID, c.Name), string(data)); err != nil {
			s.logger.Warn("failed to write component key",
				zap.String("tenant", p.ID),
				zap.String("component", c.Name),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("imported tenant from URL",
		zap.String("tenant", p.ID),
		zap.String("url", p.URL),
		zap.Int("components", len(tenant.Registry)),
	)
	s.revalidator.Revalidate("/admin")

	return s.tenantLocation(p.ID), nil
}

// fetchRegistryIndex fetches the top-level registry document. The fetch is
// bounded by the store's top-level timeout, must answer 2xx with a JSON
// content type, and must decode as an array of components.
func (s *Store) fetchRegistryIndex(ctx context.Context, url string) ([]model.Component, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	body, contentType, err := s.fetch(ctx, "index", url)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(contentType, "application/json") {
		return nil, &apierrors.UpstreamError{
			URL: url,
			Err: fmt.Errorf("unexpected content type %q", contentType),
		}
	}

	var registry []model.Component
	if err := json.Unmarshal(body, &registry); err != nil {
		return nil, &apierrors.UpstreamError{
			URL: url,
			Err: fmt.Errorf("response is not a registry array: %w", err),
		}
	}
	return schema.NormalizeRegistry(registry), nil
}

// enrichComponents replaces each index entry with its full remote
// definition where one can be fetched. Fetches run concurrently, one per
// component, each writing only its own slot.
func (s *Store) enrichComponents(ctx context.Context, baseURL string, registry []model.Component) []model.Component {
	if len(registry) == 0 {
		return registry
	}
	base := strings.TrimSuffix(baseURL, "/")

	style := s.discoverStyle(ctx, base)

	var g errgroup.Group
	for i := range registry {
		i := i
		g.Go(func() error {
			name := registry[i].Name
			var url string
			if style != "" {
				url = fmt.Sprintf("%s/styles/%s/%s.json", base, style, name)
			} else {
				url = fmt.Sprintf("%s/%s", base, name)
			}

			enriched, err := s.fetchComponent(ctx, url)
			if err != nil {
				// Degrade to the unenriched index entry.
				s.logger.Warn("component enrichment failed",
					zap.String("component", name),
					zap.String("url", url),
					zap.Error(err),
				)
				return nil
			}

			// The index entry's name wins so the aggregate and the
			// per-component key stay keyed consistently.
			enriched.Name = name
			registry[i] = *enriched
			return nil
		})
	}
	g.Wait()

	return registry
}

// discoverStyle applies the styles convention: list the styles index, pick
// the one named "default" or else the first. An unreachable or empty index
// means the convention yields nothing and the caller falls back to the
// per-component URL form.
func (s *Store) discoverStyle(ctx context.Context, base string) string {
	ctx, cancel := context.WithTimeout(ctx, s.perFetchTimeout)
	defer cancel()

	body, _, err := s.fetch(ctx, "styles", base+"/styles/index.json")
	if err != nil {
		return ""
	}

	var styles []styleInfo
	if err := json.Unmarshal(body, &styles); err != nil || len(styles) == 0 {
		return ""
	}
	for _, st := range styles {
		if st.Name == "default" {
			return st.Name
		}
	}
	return styles[0].Name
}

func (s *Store) fetchComponent(ctx context.Context, url string) (*model.Component, error) {
	ctx, cancel := context.WithTimeout(ctx, s.perFetchTimeout)
	defer cancel()

	body, _, err := s.fetch(ctx, "component", url)
	if err != nil {
		return nil, err
	}

	var c model.Component
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("decoding component document: %w", err)
	}
	return &c, nil
}

// fetch performs one GET, translating failures into the upstream error
// taxonomy so status codes and timeouts stay distinguishable.
func (s *Store) fetch(ctx context.Context, kind, url string) ([]byte, string, error) {
	start := time.Now()
	defer func() {
		s.recorder.RecordFetch(kind, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &apierrors.UpstreamError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", &apierrors.UpstreamError{URL: url, Timeout: true, Err: err}
		}
		return nil, "", &apierrors.UpstreamError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &apierrors.UpstreamError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, "", &apierrors.UpstreamError{URL: url, Timeout: true, Err: err}
		}
		return nil, "", &apierrors.UpstreamError{URL: url, Err: err}
	}
	return body, resp.Header.Get("Content-Type"), nil
}
