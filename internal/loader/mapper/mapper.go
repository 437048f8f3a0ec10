// Package mapper projects ATDW product documents onto storage records.
package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/loader/normalize"
)

var ErrMissingID = errors.New("mapper: product has no productId")

// DefaultInactiveStatuses are the status tokens that mark a product inactive.
var DefaultInactiveStatuses = []string{"INACTIVE", "EXPIRED", "DELETED"}

const physical = "PHYSICAL"

type Mapper struct {
	Source string
	Box    normalize.BoundingBox
	Now    func() time.Time

	inactive map[string]struct{}
}

func New(source string, box normalize.BoundingBox, inactiveStatuses []string) *Mapper {
	if len(inactiveStatuses) == 0 {
		inactiveStatuses = DefaultInactiveStatuses
	}
	inactive := make(map[string]struct{}, len(inactiveStatuses))
	for _, s := range inactiveStatuses {
		inactive[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
	return &Mapper{Source: source, Box: box, Now: time.Now, inactive: inactive}
}

// Map converts one detail document. Malformed field values become nulls or
// are skipped; a missing product id or an unencodable child is an error.
func (m *Mapper) Map(d *atdw.ProductDetail) (*models.ProductRecord, error) {
	id := d.ProductID.Trim()
	if id == "" {
		return nil, ErrMissingID
	}

	raw := d.Raw
	if len(raw) == 0 {
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product %s: %w", id, err)
		}
		raw = b
	}

	lat, lng := m.productCoordinates(d.Addresses)
	today := normalize.Today(m.Now())

	media, err := mapMedia(m.Source, d.Multimedia)
	if err != nil {
		return nil, fmt.Errorf("failed to map media for product %s: %w", id, err)
	}
	services, err := mapServices(d.Services)
	if err != nil {
		return nil, fmt.Errorf("failed to map services for product %s: %w", id, err)
	}
	rates, err := mapRates(d.Rates, today)
	if err != nil {
		return nil, fmt.Errorf("failed to map rates for product %s: %w", id, err)
	}
	deals, err := mapDeals(d.Deals, today)
	if err != nil {
		return nil, fmt.Errorf("failed to map deals for product %s: %w", id, err)
	}

	return &models.ProductRecord{
		Product: models.Product{
			Source:              m.Source,
			ExternalID:          id,
			Name:                d.ProductName.Trim(),
			CategoryCode:        d.ProductCategoryID.Trim(),
			CategoryDescription: d.ProductCategoryDescription.Trim(),
			State:               d.StateName.Trim(),
			Region:              d.AreaName.Trim(),
			City:                d.CityName.Trim(),
			Latitude:            lat,
			Longitude:           lng,
			IsActive:            m.isActive(d),
			RawSource:           raw,
		},
		ProductTypes: mapProductTypes(d.VerticalClassifications),
		Addresses:    m.mapAddresses(d.Addresses),
		Contacts:     mapContacts(d.Communication),
		Media:        media,
		Services:     services,
		Rates:        rates,
		Deals:        deals,
		Attributes:   mapAttributes(d.Attributes),
	}, nil
}

// isActive is a heuristic: the feed has no reliable flag, so only an explicit
// inactive status token turns a product off.
func (m *Mapper) isActive(d *atdw.ProductDetail) bool {
	status := d.AtdwStatus.Trim()
	if status == "" {
		status = d.Status.Trim()
	}
	_, inactive := m.inactive[strings.ToUpper(status)]
	return !inactive
}

func purpose(a atdw.Address) string {
	if p := a.AddressPurpose.Trim(); p != "" {
		return strings.ToUpper(p)
	}
	return strings.ToUpper(a.AddressType.Trim())
}

// productCoordinates prefers the physical address, then the first address
// in source order that has a usable pair.
func (m *Mapper) productCoordinates(addresses []atdw.Address) (*float64, *float64) {
	for _, a := range addresses {
		if purpose(a) != physical {
			continue
		}
		if lat, lng := m.Box.Coordinates(a.Latitude.String(), a.Longitude.String()); lat != nil {
			return lat, lng
		}
	}
	for _, a := range addresses {
		if lat, lng := m.Box.Coordinates(a.Latitude.String(), a.Longitude.String()); lat != nil {
			return lat, lng
		}
	}
	return nil, nil
}

func (m *Mapper) mapAddresses(addresses []atdw.Address) []models.Address {
	out := make([]models.Address, 0, len(addresses))
	for _, a := range addresses {
		kind := models.AddressPostal
		if p := purpose(a); p == "" || p == physical {
			kind = models.AddressPhysical
		}
		lat, lng := m.Box.Coordinates(a.Latitude.String(), a.Longitude.String())
		out = append(out, models.Address{
			Kind:      kind,
			Line1:     a.Line1.Trim(),
			Line2:     a.Line2.Trim(),
			Line3:     a.Line3.Trim(),
			City:      a.CityName.Trim(),
			State:     a.StateName.Trim(),
			Postcode:  a.PostalCode.Trim(),
			Country:   a.CountryName.Trim(),
			Latitude:  lat,
			Longitude: lng,
		})
	}
	return out
}

func mapProductTypes(verticals []atdw.VerticalClassification) []models.ProductType {
	seen := make(map[string]struct{}, len(verticals))
	out := make([]models.ProductType, 0, len(verticals))
	for _, v := range verticals {
		code := v.ProductTypeID.Trim()
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, models.ProductType{Code: code, Description: v.ProductTypeDescription.Trim()})
	}
	return out
}

// mapAttributes builds attribute references. Accessibility entries carry
// their code in the sub-type fields.
func mapAttributes(attrs []atdw.Attribute) []models.AttributeRef {
	seen := make(map[string]struct{}, len(attrs))
	out := make([]models.AttributeRef, 0, len(attrs))
	for _, a := range attrs {
		code, label := a.AttributeID.Trim(), a.AttributeDescription.Trim()
		if code == "" {
			code, label = a.SubType1ID.Trim(), a.SubType1IDDescription.Trim()
		}
		if code == "" {
			continue
		}
		if label == "" {
			label = code
		}

		typeCode := a.TypeID.Trim()
		typeDesc := a.TypeDescription.Trim()
		if typeDesc == "" {
			typeDesc = typeCode
		}

		ref := models.AttributeRef{TypeCode: typeCode, TypeDescription: typeDesc, Code: code, Label: label}
		if _, dup := seen[ref.Composite()]; dup {
			continue
		}
		seen[ref.Composite()] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// nullable returns nil for blank strings so they serialize as JSON null.
func nullable(s atdw.FlexString) any {
	if v := s.Trim(); v != "" {
		return v
	}
	return nil
}
