// Package registry implements the tenant registry store: the data-access
// and consistency layer mapping tenant and component identifiers to
// persisted records in the key-value backend.
//
// Every tenant's data lives in two overlapping representations: the
// aggregate record under tenant:<id>, and one record per component under
// component:<id>:<name>. The two are not updated transactionally. Writes
// touch the per-component key first and the aggregate second, and single
// component reads prefer the per-component key with an aggregate fallback,
// so divergence is bounded and self-heals on the next successful write.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jacobparis/registry-registry/internal/apierrors"
	"github.com/jacobparis/registry-registry/internal/kv"
	"github.com/jacobparis/registry-registry/internal/model"
	"github.com/jacobparis/registry-registry/internal/sanitize"
	"github.com/jacobparis/registry-registry/internal/schema"
)

const (
	tenantKeyPrefix    = "tenant:"
	componentKeyPrefix = "component:"
)

func tenantKey(id string) string {
	return tenantKeyPrefix + id
}

func componentKey(id, name string) string {
	return componentKeyPrefix + id + ":" + name
}

func tenantComponentPrefix(id string) string {
	return componentKeyPrefix + id + ":"
}

// Revalidator is the page-revalidation hook invoked after mutations. Calls
// are fire-and-forget; failures are the implementation's problem.
type Revalidator interface {
	Revalidate(path string)
}

// NoopRevalidator ignores all revalidation requests.
type NoopRevalidator struct{}

func (NoopRevalidator) Revalidate(string) {}

// OpRecorder records store operation outcomes and remote fetch timings for
// metrics.
type OpRecorder interface {
	RecordOp(op, outcome string)
	RecordFetch(kind string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordOp(string, string)           {}
func (noopRecorder) RecordFetch(string, time.Duration) {}

// Store owns all reads and writes of tenant and component records. No other
// part of the system writes these keys.
type Store struct {
	backend     kv.Store
	revalidator Revalidator
	recorder    OpRecorder
	logger      *zap.Logger

	protocol   string
	rootDomain string

	fetchTimeout    time.Duration
	perFetchTimeout time.Duration
	httpClient      httpDoer
}

// Options configures a Store.
type Options struct {
	// Protocol and RootDomain form the redirect location handed back after
	// tenant creation, <protocol>://<id>.<root-domain>.
	Protocol   string
	RootDomain string

	// FetchTimeout bounds the top-level remote registry fetch;
	// PerFetchTimeout bounds each per-component enrichment fetch.
	FetchTimeout    time.Duration
	PerFetchTimeout time.Duration

	Revalidator Revalidator
	Recorder    OpRecorder
}

// NewStore creates a tenant registry store over the given backend.
func NewStore(backend kv.Store, opts Options, logger *zap.Logger) *Store {
	if opts.Revalidator == nil {
		opts.Revalidator = NoopRevalidator{}
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.PerFetchTimeout == 0 {
		opts.PerFetchTimeout = 5 * time.Second
	}
	if opts.Protocol == "" {
		opts.Protocol = "https"
	}

	return &Store{
		backend:         backend,
		revalidator:     opts.Revalidator,
		recorder:        opts.Recorder,
		logger:          logger,
		protocol:        opts.Protocol,
		rootDomain:      opts.RootDomain,
		fetchTimeout:    opts.FetchTimeout,
		perFetchTimeout: opts.PerFetchTimeout,
		httpClient:      defaultHTTPClient(),
	}
}

// CreateTenantParams carries the caller input for tenant creation from an
// inline registry document.
type CreateTenantParams struct {
	ID           string
	Icon         string
	RegistryJSON string
	Name         string
	Description  string
}

// CreateTenant validates and persists a new tenant from an inline JSON
// registry. On success it returns the new tenant's location for the caller
// to redirect to; no record is returned.
func (s *Store) CreateTenant(ctx context.Context, p CreateTenantParams) (string, error) {
	redirect, err := s.createTenant(ctx, p)
	s.record("create_tenant", err)
	return redirect, err
}

func (s *Store) createTenant(ctx context.Context, p CreateTenantParams) (string, error) {
	if p.ID == "" || p.Icon == "" || p.RegistryJSON == "" {
		return "", apierrors.Validation("registry name, icon, and registry JSON are required")
	}

	if !schema.ValidIcon(p.Icon) {
		return "", apierrors.Validation("please enter a valid emoji (maximum 10 characters)")
	}

	registry, err := schema.ParseRegistryJSON(p.RegistryJSON)
	if err != nil {
		return "", apierrors.Validation("please provide a valid registry JSON format")
	}

	// Creation never coerces the identifier; a name that sanitizes to
	// something else is the caller's mistake to fix.
	if sanitize.ID(p.ID) != p.ID {
		return "", apierrors.Validation("registry name can only have lowercase letters, numbers, and hyphens")
	}

	// Check-then-act: two concurrent creations of the same name can both
	// pass this check and one will overwrite the other. The backend has no
	// compare-and-swap, so this race is documented rather than closed.
	if existing, err := s.getTenantRaw(ctx, p.ID); err != nil {
		return "", err
	} else if existing != nil {
		return "", apierrors.TenantExists(p.ID)
	}

	tenant := s.newTenant(p.ID, p.Icon, p.Name, p.Description, registry)
	if err := s.putTenant(ctx, p.ID, tenant); err != nil {
		return "", err
	}

	s.logger.Info("created tenant",
		zap.String("tenant", p.ID),
		zap.Int("components", len(registry)),
	)
	s.revalidator.Revalidate("/admin")

	return s.tenantLocation(p.ID), nil
}

// DeleteTenant removes the tenant record and every per-component key under
// the tenant's prefix. Deleting a nonexistent tenant is a no-op success.
func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	err := s.deleteTenant(ctx, id)
	s.record("delete_tenant", err)
	return err
}

func (s *Store) deleteTenant(ctx context.Context, id string) error {
	id = sanitize.ID(id)
	if id == "" {
		return nil
	}

	// The prefix scan is a superset of the aggregate's component name set,
	// so orphaned per-component keys from interrupted writes go too.
	keys, err := s.backend.Keys(ctx, tenantComponentPrefix(id))
	if err != nil {
		return fmt.Errorf("listing component keys for %s: %w", id, err)
	}
	if len(keys) > 0 {
		if err := s.backend.Delete(ctx, keys...); err != nil {
			return fmt.Errorf("deleting component keys for %s: %w", id, err)
		}
	}

	if err := s.backend.Delete(ctx, tenantKey(id)); err != nil {
		return fmt.Errorf("deleting tenant %s: %w", id, err)
	}

	s.logger.Info("deleted tenant",
		zap.String("tenant", id),
		zap.Int("component_keys", len(keys)),
	)
	s.revalidator.Revalidate("/admin")

	return nil
}

// UpdateComponent writes a component under the tenant, distinguishing three
// intents: update-in-place when the new name equals oldName, create when
// oldName is empty, and rename otherwise. The per-component key is written
// first, the aggregate second, so direct lookups are never stale relative
// to the aggregate.
func (s *Store) UpdateComponent(ctx context.Context, tenantID, oldName string, c model.Component) error {
	err := s.updateComponent(ctx, tenantID, oldName, c)
	s.record("update_component", err)
	return err
}

func (s *Store) updateComponent(ctx context.Context, tenantID, oldName string, c model.Component) error {
	tenantID = sanitize.ID(tenantID)
	if tenantID == "" {
		return apierrors.Validation("tenant is required")
	}
	if err := schema.ValidateComponent(c); err != nil {
		return apierrors.Validation("%s", err.Error())
	}

	creating := oldName == ""
	renaming := !creating && c.Name != oldName

	// Load the aggregate up front so a nonexistent tenant fails before any
	// key is written; a failed call must not leave per-component keys behind.
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return apierrors.Validation("registry %q not found", tenantID)
	}

	if creating || renaming {
		// The new name must be free. Both representations are consulted so
		// legacy components that predate per-component keys still conflict.
		// Check-then-act; see the note on CreateTenant.
		taken, err := s.componentTaken(ctx, tenantID, c.Name)
		if err != nil {
			return err
		}
		if taken {
			return apierrors.ComponentExists(c.Name)
		}
	}

	if renaming {
		if err := s.backend.Delete(ctx, componentKey(tenantID, oldName)); err != nil {
			return fmt.Errorf("deleting component key %s/%s: %w", tenantID, oldName, err)
		}
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding component %s: %w", c.Name, err)
	}
	if err := s.backend.Set(ctx, componentKey(tenantID, c.Name), string(data)); err != nil {
		return fmt.Errorf("writing component key %s/%s: %w", tenantID, c.Name, err)
	}

	match := oldName
	if creating {
		match = c.Name
	}
	replaced := false
	for i := range tenant.Registry {
		if tenant.Registry[i].Name == match {
			tenant.Registry[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		tenant.Registry = append(tenant.Registry, c)
	}
	tenant.Registry = schema.NormalizeRegistry(tenant.Registry)

	if err := s.putTenant(ctx, tenantID, tenant); err != nil {
		return err
	}

	s.logger.Info("updated component",
		zap.String("tenant", tenantID),
		zap.String("component", c.Name),
		zap.String("previous_name", oldName),
	)
	s.revalidator.Revalidate("/s/" + tenantID)

	return nil
}

// ComponentExists probes the per-component key space. Callers use it to
// pre-validate renames before invoking UpdateComponent.
func (s *Store) ComponentExists(ctx context.Context, tenantID, name string) (bool, error) {
	tenantID = sanitize.ID(tenantID)
	_, err := s.backend.Get(ctx, componentKey(tenantID, name))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetTenant returns the tenant's aggregate record, or nil when absent.
// Records in any of the legacy encodings are reconciled transparently;
// undecodable records read as absent.
func (s *Store) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	id = sanitize.ID(id)
	tenant, err := s.getTenantRaw(ctx, id)
	if err != nil || tenant == nil {
		return nil, err
	}

	if tenant.Name == "" {
		tenant.Name = id
	}
	if tenant.Description == "" {
		tenant.Description = id + " registry"
	}
	return tenant, nil
}

// GetComponent returns one component, preferring the dedicated key and
// falling back to a scan of the aggregate array. The fallback exists
// because historical records predate per-component keys.
func (s *Store) GetComponent(ctx context.Context, tenantID, name string) (*model.Component, error) {
	tenantID = sanitize.ID(tenantID)

	raw, err := s.backend.Get(ctx, componentKey(tenantID, name))
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		c, _ := schema.DecodeComponent([]byte(raw))
		if c != nil {
			return c, nil
		}
	}

	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil || tenant == nil {
		return nil, err
	}
	for i := range tenant.Registry {
		if tenant.Registry[i].Name == name {
			return &tenant.Registry[i], nil
		}
	}
	return nil, nil
}

// ListTenants enumerates every tenant for the administrative overview.
// Unreadable or legacy records degrade to placeholder values rather than
// failing the listing.
func (s *Store) ListTenants(ctx context.Context) ([]model.TenantSummary, error) {
	keys, err := s.backend.Keys(ctx, tenantKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing tenant keys: %w", err)
	}
	if len(keys) == 0 {
		return []model.TenantSummary{}, nil
	}

	values, err := s.backend.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("reading tenant records: %w", err)
	}

	summaries := make([]model.TenantSummary, 0, len(keys))
	for i, key := range keys {
		id := key[len(tenantKeyPrefix):]
		summary := model.TenantSummary{
			ID:          id,
			Icon:        "❓",
			CreatedAt:   time.Now().UnixMilli(),
			Name:        id,
			Description: id + " registry",
		}

		tenant, _ := schema.DecodeTenant([]byte(values[i]))
		if tenant != nil {
			if tenant.Icon != "" {
				summary.Icon = tenant.Icon
			}
			if tenant.CreatedAt != 0 {
				summary.CreatedAt = tenant.CreatedAt
			}
			if tenant.Name != "" {
				summary.Name = tenant.Name
			}
			if tenant.Description != "" {
				summary.Description = tenant.Description
			}
			summary.ComponentsCount = len(tenant.Registry)
		} else {
			s.logger.Warn("unreadable tenant record", zap.String("tenant", id))
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// componentTaken reports whether a component name is in use in either
// representation.
func (s *Store) componentTaken(ctx context.Context, tenantID, name string) (bool, error) {
	exists, err := s.ComponentExists(ctx, tenantID, name)
	if err != nil || exists {
		return exists, err
	}

	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil || tenant == nil {
		return false, err
	}
	for _, c := range tenant.Registry {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// getTenantRaw reads and decodes the aggregate without applying display
// defaults.
func (s *Store) getTenantRaw(ctx context.Context, id string) (*model.Tenant, error) {
	raw, err := s.backend.Get(ctx, tenantKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Parse failures read as absent so format drift never breaks reads.
	return schema.DecodeTenant([]byte(raw))
}

func (s *Store) putTenant(ctx context.Context, id string, tenant *model.Tenant) error {
	tenant.Registry = schema.NormalizeRegistry(tenant.Registry)
	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("encoding tenant %s: %w", id, err)
	}
	if err := s.backend.Set(ctx, tenantKey(id), string(data)); err != nil {
		return fmt.Errorf("writing tenant %s: %w", id, err)
	}
	return nil
}

func (s *Store) newTenant(id, icon, name, description string, registry []model.Component) *model.Tenant {
	if name == "" {
		name = id
	}
	if description == "" {
		description = id + " registry"
	}
	return &model.Tenant{
		Icon:        icon,
		CreatedAt:   time.Now().UnixMilli(),
		Registry:    registry,
		Name:        name,
		Description: description,
	}
}

func (s *Store) tenantLocation(id string) string {
	return fmt.Sprintf("%s://%s.%s", s.protocol, id, s.rootDomain)
}

func (s *Store) record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.recorder.RecordOp(op, outcome)
}
