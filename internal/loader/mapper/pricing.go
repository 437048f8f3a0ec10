package mapper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/loader/normalize"
)

const defaultCurrency = "AUD"

// Колонки price имеют тип NUMERIC(10, 2): целая часть не длиннее 8 цифр.
var maxPrice = decimal.New(1, 8)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// price parses a feed amount and drops values the price column cannot hold,
// e.g. a phone number typed into the price field.
func price(raw atdw.FlexString) *decimal.Decimal {
	d := normalize.Money(raw.String())
	if d == nil {
		return nil
	}
	rounded := d.Round(2)
	if rounded.Abs().GreaterThanOrEqual(maxPrice) {
		return nil
	}
	return &rounded
}

// currencyCode returns an ISO-4217 style code, falling back to AUD.
func currencyCode(raw atdw.FlexString) string {
	c := strings.ToUpper(raw.Trim())
	if currencyRe.MatchString(c) {
		return c
	}
	return defaultCurrency
}

func mapServices(services []atdw.Service) ([]models.Service, error) {
	out := make([]models.Service, 0, len(services))
	for _, s := range services {
		details := s.Raw
		if len(details) == 0 {
			b, err := json.Marshal(s)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal service %q: %w", s.Name.Trim(), err)
			}
			details = b
		}
		out = append(out, models.Service{
			Name:              s.Name.Trim(),
			Kind:              s.Type.Trim(),
			OccupancyAdults:   normalize.ParseInt(s.OccupancyAdults.String()),
			OccupancyChildren: normalize.ParseInt(s.OccupancyChildren.String()),
			BedConfig:         s.BedConfiguration.Trim(),
			Details:           details,
		})
	}
	return out, nil
}

// mapRates treats every rate as valid from today; the feed has no end date.
func mapRates(rates []atdw.Rate, today time.Time) ([]models.Rate, error) {
	out := make([]models.Rate, 0, len(rates))
	for i, r := range rates {
		rateType := nullable(r.RatesTypeDescription)
		if rateType == nil {
			rateType = nullable(r.RatesType)
		}
		constraints, err := json.Marshal(map[string]any{
			"rate_type":  rateType,
			"price_from": nullable(r.PriceFrom),
			"price_to":   nullable(r.PriceTo),
			"is_free":    strings.EqualFold(r.Free.Trim(), "true"),
			"comment":    nullable(r.Comment),
			"raw":        rawOrNull(r.Raw),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rate %d: %w", i, err)
		}

		out = append(out, models.Rate{
			Price:       price(r.PriceFrom),
			Currency:    currencyCode(r.Currency),
			StartDate:   today,
			EndDate:     normalize.FarFuture,
			Constraints: constraints,
		})
	}
	return out, nil
}

func mapDeals(deals []atdw.Deal, today time.Time) ([]models.Deal, error) {
	out := make([]models.Deal, 0, len(deals))
	for i, d := range deals {
		start, ok := normalize.Date(d.StartDate.String())
		if !ok {
			start = today
		}
		end, ok := normalize.Date(d.EndDate.String())
		if !ok {
			end = normalize.FarFuture
		}

		dealType := nullable(d.TypeDescription)
		if dealType == nil {
			dealType = nullable(d.Type)
		}
		constraints, err := json.Marshal(map[string]any{
			"source_deal_id":    nullable(d.DealID),
			"deal_type":         dealType,
			"description":       nullable(d.Description),
			"comment":           nullable(d.Comment),
			"url":               nullable(d.URL),
			"url_with_tracking": nullable(d.URLWithTracking),
			"redeem_from":       nullable(d.RedeemStartDate),
			"redeem_to":         nullable(d.RedeemEndDate),
			"terms":             nullable(d.Terms),
			"inclusions":        nullable(d.Inclusions),
			"raw":               rawOrNull(d.Raw),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal deal %d: %w", i, err)
		}

		out = append(out, models.Deal{
			Title:       d.Name.Trim(),
			Price:       price(d.Price),
			Currency:    defaultCurrency,
			StartDate:   start,
			EndDate:     end,
			Constraints: constraints,
		})
	}
	return out, nil
}
