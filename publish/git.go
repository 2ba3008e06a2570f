package publish

import (
	"os/exec"
	"strings"
)

// gitDirtyChecker shells out to the git binary, the idiomatic Go way to
// ask "is this working tree clean" without vendoring a full VCS library
// (§4.10 step 1's "version control integration").
type gitDirtyChecker struct{}

// GitDirtyChecker returns a DirtyChecker backed by `git status
// --porcelain`. If dir is not inside a git repository (or git is not
// installed), it reports clean — VCS integration is simply not "enabled"
// for that directory, per §4.10 step 1's conditional check.
func GitDirtyChecker() DirtyChecker {
	return gitDirtyChecker{}
}

func (gitDirtyChecker) IsDirty(dir string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(string(out)) != "", nil
}
