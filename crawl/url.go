package crawl

import (
	"net"
	"net/url"
	"strings"

	"github.com/fwojciec/dumpit"
	"golang.org/x/net/publicsuffix"
)

// Normalize returns the canonical form of an absolute http(s) URL, used as
// the frontier's deduplication key. Scheme and host are lowercased, default
// ports are dropped, the fragment is removed, an empty path becomes "/",
// a trailing slash is trimmed from other paths, and query parameters are
// sorted by key.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", dumpit.Errorf(dumpit.EINVALID, "invalid URL %q: %v", rawURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", dumpit.Errorf(dumpit.EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", dumpit.Errorf(dumpit.EINVALID, "URL has no host: %q", rawURL)
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	} else if u.Path != "/" {
		trimmed := strings.TrimRight(u.Path, "/")
		if trimmed == "" {
			trimmed = "/"
		}
		u.Path = trimmed
		if u.RawPath != "" {
			u.RawPath = strings.TrimRight(u.RawPath, "/")
		}
	}

	if u.RawQuery != "" {
		// Encode sorts by key.
		u.RawQuery = u.Query().Encode()
	}
	u.ForceQuery = false

	return u.String(), nil
}

// Scope decides whether a URL belongs to the site being scraped.
//
// URLs are in scope when their host shares the seed's registrable domain
// (eTLD+1), so www.example.com and docs.example.com both belong to an
// example.com seed. Hosts without a registrable domain (IP addresses,
// localhost and other single-label names) must match the seed's host and
// port exactly.
type Scope struct {
	host string
	site string
}

// NewScope returns the scope of seedURL.
func NewScope(seedURL string) (*Scope, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, dumpit.Errorf(dumpit.EINVALID, "invalid seed URL: %v", err)
	}
	if u.Hostname() == "" {
		return nil, dumpit.Errorf(dumpit.EINVALID, "seed URL has no host: %q", seedURL)
	}
	return &Scope{
		host: hostKey(u),
		site: registrableDomain(u.Hostname()),
	}, nil
}

// Contains reports whether rawURL is an http(s) URL inside the scope.
func (s *Scope) Contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if s.site == "" {
		return hostKey(u) == s.host
	}
	return registrableDomain(u.Hostname()) == s.site
}

// hostKey returns the lowercased host with default ports removed.
func hostKey(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	scheme := strings.ToLower(u.Scheme)
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return host
	}
	return net.JoinHostPort(host, port)
}

// registrableDomain returns host's eTLD+1, or "" for hosts that have none.
func registrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return ""
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return site
}
