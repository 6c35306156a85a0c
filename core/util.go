package core

import (
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	slugInvalidRegex = regexp.MustCompile(`[^a-z0-9]+`)
	slugDashesRegex  = regexp.MustCompile(`-{2,}`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Slugify lowers `s` and replaces every run of non-alphanumeric characters with a single dash.
func Slugify(s string) string {
	s = slugInvalidRegex.ReplaceAllString(CleanString(s, true), "-")
	s = slugDashesRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Getwd tries to find the project root, the closest parent directory holding a go.mod.
// go-test changes the working directory to the test package being run during tests,
// binaries deployed without sources fall back to the current directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
