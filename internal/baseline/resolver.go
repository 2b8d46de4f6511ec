package baseline

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"parity/internal/manifest"
)

// ResolvedEntry is an entry file located for staging into a capture
// workspace.
type ResolvedEntry struct {
	// Name is the entry as listed in the manifest.
	Name string
	// StageName is the file name the entry is staged under; module triggers
	// are matched against it.
	StageName string
	// Origin records where the bytes came from: a filesystem path, or
	// "<archive>!<entry>" for archive hits.
	Origin string
	Data   []byte
}

// UnresolvedEntryError reports an entry file that no source could provide.
type UnresolvedEntryError struct {
	FixtureID string
	Entry     string
}

func (e *UnresolvedEntryError) Error() string {
	return fmt.Sprintf("fixture %s: entry file %q not found in input directory or baseline archives", e.FixtureID, e.Entry)
}

// Resolver locates entry files for one fixture. Archives are opened once
// and reused across lookups.
type Resolver struct {
	fixture  manifest.Fixture
	archives []*Archive
	opened   bool
}

func NewResolver(fx manifest.Fixture) *Resolver {
	return &Resolver{fixture: fx}
}

// Archives opens and returns the fixture's reference archives in manifest
// order. Sources of other kinds are skipped.
func (r *Resolver) Archives() ([]*Archive, error) {
	if r.opened {
		return r.archives, nil
	}
	for _, src := range r.fixture.BaselineSources {
		if src.Kind != manifest.KindReferenceArchive {
			continue
		}
		a, err := OpenArchive(src.Path)
		if err != nil {
			return nil, err
		}
		r.archives = append(r.archives, a)
	}
	r.opened = true
	return r.archives, nil
}

// Resolve locates one entry file. Lookup order: the exact relative path
// under the fixture's input directory, then the bare basename there, then
// each reference archive in manifest order, then non-archive baseline
// sources by basename.
func (r *Resolver) Resolve(entry string) (*ResolvedEntry, error) {
	rel := strings.ReplaceAll(entry, "\\", "/")
	base := path.Base(rel)

	exact := filepath.Join(r.fixture.InputDirectory, filepath.FromSlash(rel))
	if data, err := readFile(exact); err == nil {
		return &ResolvedEntry{Name: entry, StageName: base, Origin: exact, Data: data}, nil
	}

	if base != rel {
		flat := filepath.Join(r.fixture.InputDirectory, base)
		if data, err := readFile(flat); err == nil {
			return &ResolvedEntry{Name: entry, StageName: base, Origin: flat, Data: data}, nil
		}
	}

	archives, err := r.Archives()
	if err != nil {
		return nil, err
	}
	for _, a := range archives {
		if e, ok := a.Lookup(rel); ok {
			origin := fmt.Sprintf("%s!%s", a.Path, e.Name)
			return &ResolvedEntry{Name: entry, StageName: base, Origin: origin, Data: e.Data}, nil
		}
	}

	for _, src := range r.fixture.BaselineSources {
		p, ok := looseCandidate(src, rel, base)
		if !ok {
			continue
		}
		if data, err := readFile(p); err == nil {
			return &ResolvedEntry{Name: entry, StageName: base, Origin: p, Data: data}, nil
		}
	}

	return nil, &UnresolvedEntryError{FixtureID: r.fixture.ID, Entry: entry}
}

// looseCandidate maps a non-archive baseline source to the path that could
// hold the entry. Directory sources are probed by relative path then
// basename; loose file sources match by basename alone.
func looseCandidate(src manifest.BaselineSource, rel, base string) (string, bool) {
	switch src.Kind {
	case manifest.KindReferenceDir:
		p := filepath.Join(src.Path, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
		return filepath.Join(src.Path, base), true
	case manifest.KindLooseFiles:
		info, err := os.Stat(src.Path)
		if err != nil {
			return "", false
		}
		if info.IsDir() {
			return filepath.Join(src.Path, base), true
		}
		if filepath.Base(src.Path) == base {
			return src.Path, true
		}
		return "", false
	}
	return "", false
}

// ResolveAll resolves every entry file of the fixture. Missing entries are
// returned by name rather than failing the whole resolution; infrastructure
// errors (unreadable archives) still abort.
func (r *Resolver) ResolveAll() (resolved []*ResolvedEntry, missing []string, err error) {
	for _, entry := range r.fixture.EntryFiles {
		re, err := r.Resolve(entry)
		if err != nil {
			var un *UnresolvedEntryError
			if errors.As(err, &un) {
				missing = append(missing, entry)
				continue
			}
			return nil, nil, err
		}
		resolved = append(resolved, re)
	}
	return resolved, missing, nil
}

func readFile(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	return os.ReadFile(p)
}
