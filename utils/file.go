package utils

import (
	"path/filepath"
	"runtime"
)

// ResolveFile returns the real path of a file relative to the repository root, e.g.
// ResolveFile("referenceframe/testfiles/seven_dof_arm.json"). Tests use it to share fixtures
// across packages.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, thisFilePath, _, _ := runtime.Caller(0)
	thisDirPath, err := filepath.Abs(filepath.Dir(thisFilePath))
	if err != nil {
		panic(err)
	}
	return filepath.Join(thisDirPath, "..", fn)
}
