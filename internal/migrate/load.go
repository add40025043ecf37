package migrate

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// LoadScripts reads every *.sql file from the filesystem into Scripts, sorted
// by ID. File names follow `<number>_<name>.sql`; the full base name (without
// the extension) becomes the script ID so lexicographic order matches apply
// order.
func LoadScripts(fsys fs.FS) ([]Script, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migration scripts: %w", err)
	}
	sort.Strings(files)

	scripts := make([]Script, 0, len(files))
	for _, file := range files {
		id, description, err := parseScriptName(file)
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		scripts = append(scripts, NewScript(id, description, string(body)))
	}
	return scripts, nil
}

func parseScriptName(file string) (id, description string, err error) {
	base := strings.TrimSuffix(file, ".sql")
	idx := strings.Index(base, "_")
	if idx <= 0 || idx == len(base)-1 {
		return "", "", fmt.Errorf("invalid migration filename %s: want <number>_<name>.sql", file)
	}
	for _, r := range base[:idx] {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("invalid migration version in %s: prefix must be numeric", file)
		}
	}
	return base, strings.ReplaceAll(base[idx+1:], "_", " "), nil
}
