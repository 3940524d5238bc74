package rtorder

import (
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
)

// ExpandHome expands ~ to its proper path, where appropriate. Google Storage
// paths are returned untouched.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return path, pfx.Err(err)
	}

	return filepath.Join(usr.HomeDir, path[2:]), nil
}

// JoinPath joins elem onto base, honoring gs:// prefixes that filepath.Join
// would otherwise collapse.
func JoinPath(base string, elem ...string) string {
	if IsGoogleStorage(base) {
		parts := append([]string{strings.TrimSuffix(base, "/")}, elem...)
		return strings.Join(parts, "/")
	}

	return filepath.Join(append([]string{base}, elem...)...)
}
