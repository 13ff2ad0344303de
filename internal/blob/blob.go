// Package blob stores uploaded files on local disk and serves them back.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// categories of stored objects
const (
	CategoryPayments = "payments"
	CategoryBundles  = "bundles"
)

// FileStore keeps objects under root/<category>/<owner>/ and builds
// URLs under baseURL with the same layout
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates store, root directory is created when missing
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}

	return &FileStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Store writes data and returns URL of stored object.
// Object extension follows detected content type, client file names are never used.
func (fs *FileStore) Store(ctx context.Context, data []byte, category, ownerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validSegment(category) || !validSegment(ownerID) {
		return "", fmt.Errorf("invalid object location %q/%q", category, ownerID)
	}

	dir := filepath.Join(fs.root, category, ownerID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	name := uuid.NewString() + mimetype.Detect(data).Extension()

	// write to temporary file first so readers never see partial object
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}

	return fs.baseURL + "/" + path.Join(url.PathEscape(category), url.PathEscape(ownerID), name), nil
}

// Delete removes object by URL returned from Store, missing object is not an error
func (fs *FileStore) Delete(ctx context.Context, objectURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rel, ok := strings.CutPrefix(objectURL, fs.baseURL+"/")
	if !ok {
		return fmt.Errorf("object %q is outside of store", objectURL)
	}
	parts := strings.Split(rel, "/")
	if len(parts) != 3 {
		return fmt.Errorf("invalid object url %q", objectURL)
	}
	for i, p := range parts {
		seg, err := url.PathUnescape(p)
		if err != nil || !validSegment(seg) {
			return fmt.Errorf("invalid object url %q", objectURL)
		}
		parts[i] = seg
	}

	err := os.Remove(filepath.Join(fs.root, parts[0], parts[1], parts[2]))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Handler serves objects of category, it expects prefix already stripped
func (fs *FileStore) Handler(category string) http.Handler {
	files := http.FileServer(http.Dir(filepath.Join(fs.root, category)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

// Prefix returns URL path prefix of category
func (fs *FileStore) Prefix(category string) string {
	return fs.baseURL + "/" + category
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
