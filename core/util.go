package core

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/volatiletech/null/v8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NullString trims `s`. Blank strings are null.
func NullString(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}

// CleanNullString trims a valid `s`, turning it null when blank.
func CleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	return NullString(s.String)
}

// Initials returns the upper-cased first letter of the first two words of `name`.
func Initials(name string) string {
	var initials []rune
	for _, word := range strings.Fields(name) {
		initials = append(initials, unicode.ToUpper([]rune(word)[0]))
		if len(initials) == 2 {
			break
		}
	}
	return string(initials)
}

// Getwd finds the project root: the closest parent directory holding a go.mod or a config dir.
// go-test changes the working directory to the package being tested, so the cwd alone is not enough.
// Falls back to the current working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		for _, marker := range []string{"go.mod", "config"} {
			if _, err := os.Stat(filepath.Join(currDir, marker)); err == nil {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
