package atdw

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxPageSize is the largest page the /products endpoint serves.
const MaxPageSize = 5000

// Categories maps friendly names to ATDW category codes.
var Categories = map[string]string{
	"ACCOMMODATION":   "ACCOMM",
	"ATTRACTION":      "ATTRACTION",
	"TOUR":            "TOUR",
	"RESTAURANT":      "RESTAURANT",
	"EVENT":           "EVENT",
	"HIRE":            "HIRE",
	"TRANSPORT":       "TRANSPORT",
	"GENERAL_SERVICE": "GENERAL_SERVICE",
	"DESTINATION":     "DESTINATION",
	"JOURNEY":         "JOURNEY",
}

// Filter selects products on /products. Zero values are omitted from the query.
type Filter struct {
	Term       string
	Categories []string
	Lat        *float64
	Lng        *float64
	RadiusKm   float64
	State      string
	City       string
	Region     string
	MinRate    *float64
	MaxRate    *float64
	StarRating *float64
	Fields     []string
	PageSize   int
	// MaxPages stops pagination early; 0 means all pages.
	MaxPages int
}

func CategoryCodes(names []string) []string {
	codes := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if code, ok := Categories[strings.ToUpper(n)]; ok {
			codes = append(codes, code)
			continue
		}
		codes = append(codes, n)
	}
	return codes
}

func (f Filter) pageSize() int {
	switch {
	case f.PageSize <= 0:
		return MaxPageSize
	case f.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return f.PageSize
}

func (f Filter) values() url.Values {
	v := url.Values{}
	if f.Term != "" {
		v.Set("term", f.Term)
	}
	if codes := CategoryCodes(f.Categories); len(codes) > 0 {
		v.Set("cats", strings.Join(codes, ","))
	}
	if f.Lat != nil && f.Lng != nil {
		v.Set("latlong", formatFloat(*f.Lat)+","+formatFloat(*f.Lng))
		if f.RadiusKm > 0 {
			v.Set("dist", formatFloat(f.RadiusKm))
		}
	}
	if f.State != "" {
		v.Set("st", strings.ToUpper(f.State))
	}
	if f.City != "" {
		v.Set("ct", f.City)
	}
	if f.Region != "" {
		v.Set("rg", f.Region)
	}
	if f.MinRate != nil {
		v.Set("minRate", formatFloat(*f.MinRate))
	}
	if f.MaxRate != nil {
		v.Set("maxRate", formatFloat(*f.MaxRate))
	}
	if f.StarRating != nil {
		v.Set("starrating", formatFloat(*f.StarRating))
	}
	if len(f.Fields) > 0 {
		v.Set("fl", strings.Join(f.Fields, ","))
	}
	v.Set("size", strconv.Itoa(f.pageSize()))
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
