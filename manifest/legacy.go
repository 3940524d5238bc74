package manifest

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
)

// Older runs encoded their flags in the file name, e.g.
// accuracies_embso=True_featscal=noscaling_sysset=10.csv. These helpers exist
// only to migrate such trees into a manifest.

var legacyKey = regexp.MustCompile(`_([A-Za-z][A-Za-z0-9]*)=`)

// ParseLegacyName extracts the category and flavor from a legacy result file
// name. Flag names are upper-cased; values are kept verbatim and may contain
// underscores.
func ParseLegacyName(name string) (Record, error) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext != ".csv" && ext != ".tsv" {
		return Record{}, fmt.Errorf("%s: not a result table", name)
	}
	base = strings.TrimSuffix(base, ext)

	// Longest category first, since several share a prefix.
	cats := append([]string(nil), Categories...)
	sort.Slice(cats, func(i, j int) bool { return len(cats[i]) > len(cats[j]) })

	category := ""
	for _, c := range cats {
		if base == c || strings.HasPrefix(base, c+"_") {
			category = c
			break
		}
	}
	if category == "" {
		return Record{}, fmt.Errorf("%s: %w", name, ErrUnknownCategory)
	}

	rest := strings.TrimPrefix(base, category)
	flavor := Params{}

	locs := legacyKey.FindAllStringSubmatchIndex(rest, -1)
	if rest != "" && (len(locs) == 0 || locs[0][0] != 0) {
		return Record{}, fmt.Errorf("%s: unexpected text %q after the category", name, rest)
	}

	for i, loc := range locs {
		key := strings.ToUpper(rest[loc[2]:loc[3]])
		end := len(rest)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, exists := flavor[key]; exists {
			return Record{}, fmt.Errorf("%s: flag %s is given twice", name, key)
		}
		flavor[key] = rest[loc[1]:end]
	}

	return Record{
		Path:       name,
		Category:   category,
		Flavor:     flavor,
		PairParams: Params{},
	}, nil
}

// ImportDir walks dir and adds every file with a legacy result name. Paths are
// stored relative to dir. Files that do not parse are logged and skipped. It
// returns the number of records added.
func (m *Manifest) ImportDir(dir, predictor, kernel string) (int, error) {
	paths := []string{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return 0, pfx.Err(err)
	}

	return m.ImportPaths(dir, paths, predictor, kernel)
}

// ImportPaths adds every path below base that has a legacy result name, e.g.
// the object listing of a gs:// prefix. Paths are stored relative to base.
func (m *Manifest) ImportPaths(base string, paths []string, predictor, kernel string) (int, error) {
	added := 0

	for _, path := range paths {
		rec, err := ParseLegacyName(path)
		if err != nil {
			log.Println("Skipping", path, ":", err)
			continue
		}

		rel, err := relativeTo(base, path)
		if err != nil {
			return added, err
		}
		rec.Path = rel
		rec.Predictor = predictor
		rec.Kernel = kernel

		if _, err := m.Add(rec); err != nil {
			return added, err
		}
		added++
	}

	return added, nil
}

func relativeTo(base, path string) (string, error) {
	if !strings.HasPrefix(base, "gs://") {
		return filepath.Rel(base, path)
	}

	prefix := strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("%s is not below %s", path, base)
	}

	return strings.TrimPrefix(path, prefix), nil
}
