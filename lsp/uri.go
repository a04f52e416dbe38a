package lsp

import "github.com/hankhsu1996/slangd-go/location"

// URIToPath converts a file:// URI to a canonicalized filesystem path.
func URIToPath(uri string) (string, error) {
	cp, err := location.URIToCanonicalPath(uri)
	if err != nil {
		return "", err
	}
	return cp.String(), nil
}

// PathToURI converts a filesystem path to a file:// URI. The path is
// canonicalized first, so equivalent paths always produce the same URI.
func PathToURI(path string) string {
	cp, err := location.NewCanonicalPath(path)
	if err != nil {
		return ""
	}
	return cp.URI()
}
