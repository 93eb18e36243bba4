package resolver

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantFromHost(t *testing.T) {
	res := New("example.com", ".vercel.app")

	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"localhost subdomain with port", "foo.localhost:3000", "foo"},
		{"bare localhost with port", "localhost:3000", ""},
		{"bare localhost", "localhost", ""},
		{"loopback address", "127.0.0.1:3000", ""},
		{"production subdomain", "acme.example.com", "acme"},
		{"bare root domain", "example.com", ""},
		{"www alias", "www.example.com", ""},
		{"preview deployment", "acme---preview123.vercel.app", "acme"},
		{"preview without branch delimiter", "acme.vercel.app", ""},
		{"unrelated domain", "other.org", ""},
		{"root domain with port", "example.com:8080", ""},
		{"subdomain with port", "acme.example.com:8080", "acme"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, res.TenantFromHost(tt.host))
		})
	}
}

func TestTenantFromHost_RootDomainWithPort(t *testing.T) {
	// Local dev configures the root domain with its port; comparisons strip it.
	res := New("localhost:3000", ".vercel.app")

	assert.Equal(t, "foo", res.TenantFromHost("foo.localhost:3000"))
	assert.Equal(t, "", res.TenantFromHost("localhost:3000"))
}

func TestTenantFromRequest_PrefersForwardedHost(t *testing.T) {
	res := New("example.com", ".vercel.app")

	r := httptest.NewRequest("GET", "http://internal:8080/r", nil)
	r.Host = "internal:8080"
	r.Header.Set("X-Forwarded-Host", "acme.example.com")

	assert.Equal(t, "acme", res.TenantFromRequest(r))
}

func TestTenantFromRequest_FallsBackToHost(t *testing.T) {
	res := New("example.com", ".vercel.app")

	r := httptest.NewRequest("GET", "http://acme.example.com/r", nil)
	r.Host = "acme.example.com"

	assert.Equal(t, "acme", res.TenantFromRequest(r))
}
