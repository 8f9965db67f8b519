package restaurants

import (
	"regexp"
	"strings"
	"time"
)

// Restaurant is a tenant of the platform. Its public storefront is served from
// <Subdomain>.<base domain>.
type Restaurant struct {
	ID         string    `json:"id"`
	Subdomain  string    `json:"subdomain"`
	Name       string    `json:"name"`
	TableCount int       `json:"tableCount"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSubdomain reports whether s is a single DNS label in lower case.
func ValidSubdomain(s string) bool {
	return subdomainPattern.MatchString(s)
}

// HasTable reports whether n is one of the restaurant's numbered tables (1-based).
func (r *Restaurant) HasTable(n int) bool {
	return n >= 1 && n <= r.TableCount
}

// SubdomainFromHost strips the port and the base domain from host. It returns "" when
// host is the bare base domain or does not belong to it.
func SubdomainFromHost(host, baseDomain string) string {
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if b, _, ok := strings.Cut(baseDomain, ":"); ok {
		baseDomain = b
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	baseDomain = strings.ToLower(baseDomain)

	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if strings.HasPrefix(sub, "www.") {
		sub = strings.TrimPrefix(sub, "www.")
	}
	return sub
}
