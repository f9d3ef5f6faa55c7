package steps

import (
	"os"
)

// writeTempFile writes data to a fresh temp file under os.TempDir named
// after prefix, returning its path and a cleanup func, matching the
// scoped-acquisition temp-file pattern spec.md §9 Design Notes calls for.
func writeTempFile(prefix string, data []byte) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp(os.TempDir(), prefix+"-*")
	if err != nil {
		return "", func() {}, err
	}
	path = f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", func() {}, err
	}
	return path, func() { os.Remove(path) }, nil
}
