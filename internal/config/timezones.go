package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var zoneRoots = []string{
	"/usr/share/zoneinfo",
	"/usr/lib/zoneinfo",
	"/usr/share/lib/zoneinfo",
}

// Timezones lists the IANA zone names available on this system.
func Timezones() []string {
	seen := make(map[string]struct{})
	for _, root := range zoneRoots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			name, err := filepath.Rel(root, path)
			if err != nil || !validZoneName(name) {
				return nil
			}
			if _, err := time.LoadLocation(name); err == nil {
				seen[name] = struct{}{}
			}
			return nil
		})
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validZoneName(name string) bool {
	if name == "" || strings.Contains(name, ".") {
		return false
	}
	first := name[0]
	if first < 'A' || first > 'Z' {
		return false
	}
	for _, skip := range []string{"posix/", "right/", "Etc/Unknown"} {
		if strings.HasPrefix(name, skip) {
			return false
		}
	}
	return name != "Factory" && name != "SystemV"
}
