package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Advert is a golden advertisement fixture: the input pair and the
// untagged reading every claiming driver is expected to produce.
type Advert struct {
	Name    string         `json:"-"`
	Service string         `json:"service"`
	Payload string         `json:"payload"`
	Driver  string         `json:"driver"`
	Reading map[string]any `json:"reading"`
}

// LoadAdverts loads every *.json advert fixture under testdata/dir, sorted
// by name.
func LoadAdverts(t *testing.T, dir string) []Advert {
	t.Helper()
	root := locateTestdata(t, dir)
	paths, err := filepath.Glob(filepath.Join(root, "*.json"))
	if err != nil {
		t.Fatalf("glob %s: %v", root, err)
	}
	if len(paths) == 0 {
		t.Fatalf("no fixtures in %s", root)
	}
	sort.Strings(paths)
	adverts := make([]Advert, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		var a Advert
		if err := json.Unmarshal(data, &a); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		a.Name = strings.TrimSuffix(filepath.Base(path), ".json")
		adverts = append(adverts, a)
	}
	return adverts
}

func locateTestdata(t *testing.T, rel string) string {
	t.Helper()
	candidates := []string{
		filepath.Join("testdata", rel),
		filepath.Join("..", "testdata", rel),
		filepath.Join("..", "..", "testdata", rel),
		filepath.Join("..", "..", "..", "testdata", rel),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Fatalf("unable to locate testdata %s", rel)
	return ""
}
