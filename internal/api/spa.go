package api

import (
	"net/http"
	"os"
)

// spaFileSystem serves the embedded map page and falls back to index.html
// for unknown paths so client-side routes resolve.
type spaFileSystem struct {
	root http.FileSystem
}

// Open opens the named file, or index.html if it does not exist.
func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) {
		return s.root.Open("index.html")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
