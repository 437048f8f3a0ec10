package normalize

import (
	"strconv"
	"strings"
)

// BoundingBox ограничивает допустимые координаты продукта.
type BoundingBox struct {
	MinLat float64 `mapstructure:"min_lat" yaml:"min_lat"`
	MaxLat float64 `mapstructure:"max_lat" yaml:"max_lat"`
	MinLng float64 `mapstructure:"min_lng" yaml:"min_lng"`
	MaxLng float64 `mapstructure:"max_lng" yaml:"max_lng"`
}

// Australia covers the mainland, Tasmania and the near islands.
var Australia = BoundingBox{MinLat: -45, MaxLat: -10, MinLng: 110, MaxLng: 160}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ExtractCoordinates разбирает строку "lat,lng". Вне рамки или при
// ошибке разбора возвращает nil, nil.
func (b BoundingBox) ExtractCoordinates(boundary string) (*float64, *float64) {
	latStr, lngStr, found := strings.Cut(boundary, ",")
	if !found || strings.Contains(lngStr, ",") {
		return nil, nil
	}
	return b.Coordinates(latStr, lngStr)
}

// Coordinates parses a latitude/longitude pair given as separate strings.
// Both must parse and fall inside the box.
func (b BoundingBox) Coordinates(latStr, lngStr string) (*float64, *float64) {
	lat, ok := ParseFloat(latStr)
	if !ok {
		return nil, nil
	}
	lng, ok := ParseFloat(lngStr)
	if !ok {
		return nil, nil
	}
	if !b.Contains(lat, lng) {
		return nil, nil
	}
	return &lat, &lng
}

func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInt returns nil for empty or non-numeric input.
func ParseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
