package values

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed facets.yaml
var defaultFacets []byte

// FacetKeywords lists the substrings that mark an attribute code as a search facet.
type FacetKeywords struct {
	Keywords []string `yaml:"keywords"`
}

// LoadFacetKeywords читает список ключевых слов из файла; пустой путь
// означает встроенный список.
func LoadFacetKeywords(filename string) (*FacetKeywords, error) {
	data := defaultFacets
	if filename != "" {
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read facet keywords: %w", err)
		}
	}
	return ParseFacetKeywords(data)
}

func ParseFacetKeywords(data []byte) (*FacetKeywords, error) {
	fk := &FacetKeywords{}
	if err := yaml.Unmarshal(data, fk); err != nil {
		return nil, fmt.Errorf("failed to parse facet keywords: %w", err)
	}

	cleaned := fk.Keywords[:0]
	for _, kw := range fk.Keywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	fk.Keywords = cleaned
	return fk, nil
}
