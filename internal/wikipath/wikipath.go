// Package wikipath implements the path policy for the wiki tree: deriving
// filesystem-safe names from display titles, validating path segments, and
// joining/splitting item paths. All functions are pure.
package wikipath

import (
	"regexp"
	"strings"
)

// Root is the sentinel parent path for top-level items.
const Root = "."

// maxSegmentLen bounds a single path segment.
const maxSegmentLen = 100

// Extension carried by every file item.
const Extension = ".md"

const (
	defaultFileName   = "untitled_page"
	defaultFolderName = "new_folder"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9_.\-]`)
	segment       = regexp.MustCompile(`^[a-z0-9_.\-]+$`)
)

// DeriveName turns a free-text title into a path segment: lower-cased,
// whitespace runs collapsed to underscores, disallowed characters stripped,
// with the ".md" extension appended for files and stripped for directories.
// Degenerate results fall back to a type-specific default, so the output
// always satisfies IsValidSegment.
func DeriveName(title string, directory bool) string {
	fallback := defaultFileName
	if directory {
		fallback = defaultFolderName
	}

	name := strings.ToLower(strings.TrimSpace(title))
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = disallowed.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		name = fallback
	}

	if directory {
		name = strings.TrimSuffix(name, Extension)
		if name == "" || name == "." || name == ".." {
			name = fallback
		}
	} else {
		if !strings.HasSuffix(name, Extension) {
			name += Extension
		}
		// A bare extension is not a name.
		if name == Extension {
			name = defaultFileName + Extension
		}
	}

	if len(name) > maxSegmentLen {
		name = name[:maxSegmentLen]
	}
	return name
}

// IsValidSegment reports whether s may appear as a single component of an
// item path. It rejects the empty string, dot entries, overlong segments,
// characters outside [a-z0-9_.-], and a segment that is only the extension.
func IsValidSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if len(s) > maxSegmentLen {
		return false
	}
	if !segment.MatchString(s) {
		return false
	}
	if s == Extension {
		return false
	}
	return true
}

// Join constructs an item path from a parent path and a name. The root
// sentinel (".", "/" or empty) yields the name itself.
func Join(parentPath, name string) string {
	if IsRoot(parentPath) {
		return name
	}
	return strings.TrimSuffix(parentPath, "/") + "/" + name
}

// ParentOf returns the directory component of path, or Root for top-level
// paths.
func ParentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return Root
	}
	return path[:i]
}

// Base returns the final segment of path.
func Base(path string) string {
	i := strings.LastIndex(path, "/")
	return path[i+1:]
}

// IsRoot reports whether p denotes the tree root.
func IsRoot(p string) bool {
	return p == "" || p == Root || p == "/"
}

// IsWithin reports whether path sits strictly below ancestor, on a
// "/"-delimited boundary. A path that merely begins with ancestor as a
// substring (e.g. "ab" under "a") does not qualify.
func IsWithin(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+"/")
}

// Segments splits path into its components.
func Segments(path string) []string {
	return strings.Split(path, "/")
}
