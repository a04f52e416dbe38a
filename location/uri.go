package location

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
)

// URI renders the canonical path as a file:// URI, suitable for cross-file
// go-to-definition targets and any other LSP-facing location.
//
// On POSIX systems: /path/to/file -> file:///path/to/file
// On Windows: C:\path\to\file -> file:///C:/path/to/file
func (c CanonicalPath) URI() string {
	if c.IsZero() {
		return ""
	}
	path := filepath.ToSlash(c.path)

	if runtime.GOOS == "windows" && len(path) >= 2 && isWindowsDriveLetter(path[0]) && path[1] == ':' {
		path = "/" + path
	}

	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URIToCanonicalPath parses a file:// URI and canonicalizes the resulting
// filesystem path. UNC paths are not supported.
func URIToCanonicalPath(uri string) (CanonicalPath, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return CanonicalPath{}, fmt.Errorf("parse URI %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return CanonicalPath{}, fmt.Errorf("not a file URI: %s", uri)
	}

	path := u.Path
	if runtime.GOOS == "windows" {
		if len(path) >= 3 && path[0] == '/' && isWindowsDriveLetter(path[1]) && path[2] == ':' {
			path = path[1:]
		}
		path = filepath.FromSlash(path)
	}

	return NewCanonicalPath(path)
}

func isWindowsDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
