// Package files resolves public URLs for files kept by the file service.
package files

import (
	"net/url"
	"strings"
)

// Locator turns a stored path into a URL clients can fetch
type Locator interface {
	AvatarURL(path string) string
}

// URLLocator joins stored paths onto a base URL
type URLLocator struct {
	base *url.URL
}

// NewURLLocator creates a URLLocator rooted at baseURL
func NewURLLocator(baseURL string) (*URLLocator, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	return &URLLocator{base: u}, nil
}

// AvatarURL returns the URL of an avatar. Absolute URLs are returned as is
// and an empty path yields an empty URL.
func (l *URLLocator) AvatarURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return l.base.JoinPath(strings.TrimLeft(path, "/")).String()
}
