// Package xrdurl handles root:// endpoint URLs: normalization, scheme checks
// and the opaque parameters attached to them.
package xrdurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Ning0612/xrdgate/internal/domain"
)

const (
	// Scheme is the only scheme eligible for third-party copy
	Scheme = "root"

	// DefaultPort is the XRootD port assumed when none is given
	DefaultPort = "1094"

	// SpaceTokenParam carries a space token / service class hint
	SpaceTokenParam = "svcClass"
)

// IsXrootd reports whether raw uses the root:// scheme
func IsXrootd(raw string) bool {
	return strings.HasPrefix(raw, Scheme+"://")
}

// URL is a parsed endpoint: the server address, the absolute path on it and
// the opaque query parameters.
type URL struct {
	User   string
	Host   string
	Port   string
	Path   string
	Params url.Values
}

// Parse splits a root:// URL. The path is always absolute.
func Parse(raw string) (*URL, error) {
	if !IsXrootd(raw) {
		return nil, fmt.Errorf("%w: %q is not a %s:// url", domain.ErrNotSupported, raw, Scheme)
	}

	rest := raw[strings.Index(raw, "://")+3:]

	var query string
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	authority, path := rest, "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}
	if authority == "" {
		return nil, fmt.Errorf("%w: %q has no host", domain.ErrNotSupported, raw)
	}

	u := &URL{Path: cleanPath(path)}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		u.User, authority = authority[:i], authority[i+1:]
	}
	u.Host, u.Port = authority, DefaultPort
	if i := strings.LastIndexByte(authority, ':'); i >= 0 && !strings.HasSuffix(authority, "]") {
		u.Host, u.Port = authority[:i], authority[i+1:]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("%w: bad opaque data in %q: %v", domain.ErrNotSupported, raw, err)
	}
	u.Params = params

	return u, nil
}

// cleanPath collapses repeated slashes and forces a leading one
func cleanPath(p string) string {
	var b strings.Builder
	b.WriteByte('/')
	prevSlash := true
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	s := b.String()
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// Addr returns host:port
func (u *URL) Addr() string {
	return u.Host + ":" + u.Port
}

// String renders the canonical root://[user@]host:port//path[?params] form
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	if u.User != "" {
		b.WriteString(u.User)
		b.WriteByte('@')
	}
	b.WriteString(u.Addr())
	b.WriteByte('/')
	b.WriteString(u.Path)
	if len(u.Params) > 0 {
		b.WriteByte('?')
		b.WriteString(u.Params.Encode())
	}
	return b.String()
}

// Join returns a copy of u pointing at name inside u's path. name is used
// literally, so a name holding '?' does not survive String; use Path.
func (u *URL) Join(name string) *URL {
	c := *u
	c.Path = cleanPath(u.Path + "/" + name)
	if u.Params != nil {
		c.Params = make(url.Values, len(u.Params))
		for k, v := range u.Params {
			c.Params[k] = append([]string(nil), v...)
		}
	}
	return &c
}

// Normalize returns the canonical form of raw
func Normalize(raw string) (string, error) {
	u, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Split returns the server address and the absolute path of raw
func Split(raw string) (addr, path string, err error) {
	u, err := Parse(raw)
	if err != nil {
		return "", "", err
	}
	return u.Addr(), u.Path, nil
}

// WithSpaceToken attaches token as the svcClass parameter of raw.
// An empty token leaves raw unchanged.
func WithSpaceToken(raw, token string) (string, error) {
	u, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if token != "" {
		if u.Params == nil {
			u.Params = url.Values{}
		}
		u.Params.Set(SpaceTokenParam, token)
	}
	return u.String(), nil
}
