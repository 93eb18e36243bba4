// Package resolver maps inbound request hosts to tenant identifiers.
package resolver

import (
	"net/http"
	"strings"
)

// Resolver extracts tenant identifiers from request hosts. Root domain and
// preview suffix come from configuration rather than ambient process state.
type Resolver struct {
	rootDomain    string
	previewSuffix string
}

// New creates a Resolver. rootDomain may carry a port (as it does in local
// dev, e.g. "localhost:3000"); it is stripped before comparison.
// previewSuffix is the preview-deployment platform suffix, e.g. ".vercel.app".
func New(rootDomain, previewSuffix string) *Resolver {
	return &Resolver{
		rootDomain:    stripPort(rootDomain),
		previewSuffix: previewSuffix,
	}
}

// TenantFromRequest resolves the tenant for an inbound request, preferring
// the forwarded host set by the fronting proxy over the direct host.
func (res *Resolver) TenantFromRequest(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return res.TenantFromHost(host)
}

// TenantFromHost maps a host header to a tenant identifier. It returns ""
// when the host addresses the root domain, its www alias, bare localhost,
// or anything unrecognized.
func (res *Resolver) TenantFromHost(host string) string {
	hostname := stripPort(host)
	if hostname == "" {
		return ""
	}

	// Local development: only the dotted form <id>.localhost carries a
	// tenant, bare localhost is the root site.
	if strings.Contains(hostname, "localhost") || strings.Contains(hostname, "127.0.0.1") {
		if strings.Contains(hostname, ".localhost") {
			return strings.SplitN(hostname, ".", 2)[0]
		}
		return ""
	}

	// Preview deployments use the branch convention <id>---<branch>.<suffix>.
	if strings.Contains(hostname, "---") && strings.HasSuffix(hostname, res.previewSuffix) {
		return strings.SplitN(hostname, "---", 2)[0]
	}

	// Production: a subdomain of the root domain, excluding the bare root
	// and its www alias.
	if hostname == res.rootDomain || hostname == "www."+res.rootDomain {
		return ""
	}
	suffix := "." + res.rootDomain
	if strings.HasSuffix(hostname, suffix) {
		return strings.TrimSuffix(hostname, suffix)
	}

	return ""
}

func stripPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}
