// Package baseline locates golden baseline material for fixtures: loose
// reference files next to the input deck and reference archives (.zip,
// .tar.gz, .tgz) produced by earlier oracle runs.
package baseline

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// Entry is one regular file inside a baseline archive. Name is
// slash-separated as stored in the archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive is an in-memory view of a baseline archive with noise entries
// already filtered out.
type Archive struct {
	Path    string
	Entries []Entry
	prefix  string
}

// OpenArchive reads the archive at p. The format is chosen by extension:
// .zip, .tar.gz or .tgz.
func OpenArchive(p string) (*Archive, error) {
	var (
		entries []Entry
		err     error
	)
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		entries, err = readZip(p)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		entries, err = readTarGz(p)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", p)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", p, err)
	}
	return &Archive{Path: p, Entries: entries, prefix: commonPrefix(entries)}, nil
}

// Prefix returns the single top-level directory shared by every entry, or
// "" when the archive has none. Archives are often zipped one level up
// (REFERENCE/xmu.dat instead of xmu.dat); the prefix lets callers flatten
// that layer away.
func (a *Archive) Prefix() string { return a.prefix }

// Lookup finds an entry by name: exact match first, then prefix-qualified,
// then by basename anywhere in the archive.
func (a *Archive) Lookup(name string) (Entry, bool) {
	name = path.Clean(strings.ReplaceAll(name, "\\", "/"))
	for _, e := range a.Entries {
		if e.Name == name {
			return e, true
		}
	}
	if a.prefix != "" {
		want := a.prefix + "/" + path.Base(name)
		for _, e := range a.Entries {
			if e.Name == want {
				return e, true
			}
		}
	}
	base := path.Base(name)
	for _, e := range a.Entries {
		if path.Base(e.Name) == base {
			return e, true
		}
	}
	return Entry{}, false
}

// Files returns the entries with the common prefix stripped, suitable for
// materializing the archive as a flat baseline tree.
func (a *Archive) Files() []Entry {
	out := make([]Entry, 0, len(a.Entries))
	for _, e := range a.Entries {
		name := e.Name
		if a.prefix != "" {
			name = strings.TrimPrefix(name, a.prefix+"/")
		}
		out = append(out, Entry{Name: name, Data: e.Data})
	}
	return out
}

func readZip(p string) ([]Entry, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []Entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isNoise(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: normalizeName(f.Name), Data: data})
	}
	return entries, nil
}

func readTarGz(p string) ([]Entry, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var entries []Entry
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg || isNoise(hdr.Name) {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", hdr.Name, err)
		}
		entries = append(entries, Entry{Name: normalizeName(hdr.Name), Data: data})
	}
	return entries, nil
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	return path.Clean(name)
}

// isNoise filters packaging junk that must never count as a baseline
// artifact.
func isNoise(name string) bool {
	name = normalizeName(name)
	if name == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	switch path.Base(name) {
	case ".DS_Store", "Thumbs.db":
		return true
	}
	return false
}

func commonPrefix(entries []Entry) string {
	prefix := ""
	for _, e := range entries {
		top, rest, ok := strings.Cut(e.Name, "/")
		if !ok || rest == "" {
			return ""
		}
		if prefix == "" {
			prefix = top
		} else if prefix != top {
			return ""
		}
	}
	return prefix
}
