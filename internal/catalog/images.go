package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var imageSuffix = regexp.MustCompile(`_[^_]+\.png$`)

// SourceFromImage strips the trailing "_<suffix>.png" from a cutout file
// name: "SPT3G_J0012-5512_overlay.png" → "SPT3G_J0012-5512".
func SourceFromImage(filename string) string {
	return imageSuffix.ReplaceAllString(filename, "")
}

// SortedImages lists the PNG files in dir whose source is in known, ordered
// by source name and then file name.
func SortedImages(dir string, known map[string]float64) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		if _, ok := known[SourceFromImage(name)]; ok {
			out = append(out, name)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := SourceFromImage(out[i]), SourceFromImage(out[j])
		if si != sj {
			return si < sj
		}
		return out[i] < out[j]
	})
	return out, nil
}
