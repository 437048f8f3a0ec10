package attributes

import "strings"

// FacetClassifier flags attribute codes that make good search filters.
type FacetClassifier struct {
	keywords []string
}

func NewFacetClassifier(keywords []string) FacetClassifier {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToUpper(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}
	return FacetClassifier{keywords: kws}
}

// IsFacet reports whether any keyword occurs in the raw attribute code, ignoring case.
func (f FacetClassifier) IsFacet(rawCode string) bool {
	code := strings.ToUpper(rawCode)
	for _, k := range f.keywords {
		if strings.Contains(code, k) {
			return true
		}
	}
	return false
}
