// Package workspace resolves the member directories of a workspace
// manifest: literal child paths and single-level globs against
// immediate children, filtered to directories that actually contain a
// Proto.toml, minus anything matching an exclude pattern (§4.11).
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/buffrs-dev/buffrs/errs"
	"github.com/buffrs-dev/buffrs/manifest"
)

// Resolve returns the sorted list of absolute member directories for a
// workspace manifest rooted at root.
func Resolve(root string, ws *manifest.Workspace) ([]string, error) {
	members := ws.Members
	if len(members) == 0 {
		members = []string{"*"}
	}

	included := make(map[string]bool)
	for _, pattern := range members {
		dirs, literal, err := expand(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if !hasManifest(dir) {
				if literal {
					return nil, errs.New(errs.KindWorkspaceMemberNotFound,
						"workspace member \""+pattern+"\" does not contain "+manifest.FileName)
				}
				continue
			}
			included[dir] = true
		}
	}

	for _, pattern := range ws.Exclude {
		dirs, _, err := expand(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			delete(included, dir)
		}
	}

	result := make([]string, 0, len(included))
	for dir := range included {
		result = append(result, dir)
	}
	sort.Strings(result)
	return result, nil
}

func hasManifest(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, manifest.FileName))
	return err == nil
}

func isLiteral(segment string) bool {
	return !strings.ContainsAny(segment, "*?[]")
}

// expand resolves pattern to its candidate absolute directories and
// reports whether it was a literal path (as opposed to a glob whose
// zero matches are not an error).
func expand(root, pattern string) ([]string, bool, error) {
	segments := strings.Split(pattern, "/")
	last := segments[len(segments)-1]
	baseDir := filepath.Join(append([]string{root}, segments[:len(segments)-1]...)...)

	if isLiteral(last) {
		return []string{filepath.Join(baseDir, last)}, true, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.KindIO, "read workspace directory "+baseDir, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(last, entry.Name())
		if err != nil {
			return nil, false, errs.Wrap(errs.KindWorkspaceMemberNotFound, "invalid workspace glob \""+pattern+"\"", err)
		}
		if ok {
			dirs = append(dirs, filepath.Join(baseDir, entry.Name()))
		}
	}
	return dirs, false, nil
}
