package testing

import (
	"os"
	"path/filepath"
)

const DefaultTestDirRoot = "dotd-test"

func DefaultTestDir() string {
	return filepath.Join(os.TempDir(), DefaultTestDirRoot)
}
