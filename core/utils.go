package core

import (
	"os"
	"path/filepath"
	"strings"
)

// AllSubjects is the catalog filter value meaning "no subject filter".
const AllSubjects = "All Subjects"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// IsAllSubjects reports whether a subject filter selects every subject.
func IsAllSubjects(subject string) bool {
	s := CleanString(subject)
	return s == "" || s == AllSubjects
}

// Getwd tries to find the project root (the closest parent directory holding go.mod).
// go-test changes the working directory to the test package being run, which breaks relative paths.
// Falls back to the current working directory when no root is found (e.g. a deployed binary).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
