// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"golang.org/x/text/encoding"
)

// ErrNotFound is returned by ReadFile when archive has no such entry.
var ErrNotFound = errors.New("entry not found in archive")

// Entry is a file in archive. Name is decoded from the forced code page when
// the entry is not marked as UTF-8.
type Entry struct {
	Name string
	File *zip.File
}

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk. If an error is returned, processing stops.
type WalkFunc func(archive string, entry Entry) error

// Walk walks all files in the archive which names start with prefix, calling
// walkFn for each item. Entries with path traversal components ("..") or
// absolute paths make Walk fail to prevent Zip Slip attacks. When cp is not
// nil it is used to decode non UTF-8 names.
func Walk(archive, prefix string, cp encoding.Encoding, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := decodeName(f, cp)
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(archive, Entry{Name: name, File: f}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Names returns names of files under prefix accepted by keep (all when keep
// is nil) in natural order.
func Names(archive, prefix string, cp encoding.Encoding, keep func(Entry) bool) ([]string, error) {
	var names []string
	err := Walk(archive, prefix, cp, func(_ string, e Entry) error {
		if keep == nil || keep(e) {
			names = append(names, e.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(natural.StringSlice(names))
	return names, nil
}

// ReadFile returns content of the named file.
func ReadFile(archive, name string, cp encoding.Encoding) ([]byte, error) {
	var (
		data  []byte
		found bool
	)
	err := Walk(archive, name, cp, func(_ string, e Entry) error {
		if e.Name != name {
			return nil
		}
		found = true
		rc, err := e.File.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}

func decodeName(f *zip.File, cp encoding.Encoding) string {
	if cp == nil || !f.NonUTF8 {
		return f.Name
	}
	if n, err := cp.NewDecoder().String(f.Name); err == nil {
		return n
	}
	return f.Name
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
