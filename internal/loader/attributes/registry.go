// Package attributes keeps the catalog of attribute definitions known to the store
// and decides what happens to codes seen for the first time.
package attributes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/core/services"
)

var ErrRegistration = errors.New("attributes: registration failed")

// Resolution reports one ResolveOrDiscover call.
type Resolution struct {
	// AllKnown is true when every referenced code is in the catalog afterwards.
	AllKnown   bool
	Registered []string
	// Declined holds codes rejected by the decider during this call.
	Declined []string
}

// Registry maps composite codes to catalog ids. Codes rejected during a run
// stay rejected until the next run.
type Registry struct {
	catalog services.AttributeCatalog
	decider Decider
	facets  FacetClassifier
	log     *zap.Logger

	mu      sync.Mutex
	known   map[string]int64
	flagged map[string]struct{}
}

func NewRegistry(catalog services.AttributeCatalog, decider Decider, facets FacetClassifier, log *zap.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		decider: decider,
		facets:  facets,
		log:     log.Named("registry"),
		known:   make(map[string]int64),
		flagged: make(map[string]struct{}),
	}
}

// Load replaces the known set with the catalog contents.
func (r *Registry) Load(ctx context.Context) error {
	codes, err := r.catalog.LoadAttributeCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load attribute catalog: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.known = make(map[string]int64, len(codes))
	for code, id := range codes {
		r.known[code] = id
	}
	r.log.Info("loaded known attributes", zap.Int("count", len(r.known)))
	return nil
}

func (r *Registry) Known(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.known[code]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.known)
}

// Definition builds the catalog entry proposed for a reference.
func (r *Registry) Definition(ref models.AttributeRef) models.AttributeDefinition {
	return models.AttributeDefinition{
		Code:        ref.Composite(),
		RawCode:     ref.Code,
		Label:       ref.Label,
		DataType:    models.DataTypeBool,
		Facet:       r.facets.IsFacet(ref.Code),
		Description: ref.TypeDescription,
	}
}

// ResolveOrDiscover checks refs against the catalog. Codes not seen before in
// this run are handed to the decider as one batch; accepted codes are
// registered and only then added to the known set. Calls are serialized.
func (r *Registry) ResolveOrDiscover(ctx context.Context, refs []models.AttributeRef) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fresh []models.AttributeDefinition
	batch := make(map[string]struct{})
	for _, ref := range refs {
		code := ref.Composite()
		if _, ok := r.known[code]; ok {
			continue
		}
		if _, ok := r.flagged[code]; ok {
			continue
		}
		if _, ok := batch[code]; ok {
			continue
		}
		batch[code] = struct{}{}
		fresh = append(fresh, r.Definition(ref))
	}

	var res Resolution
	if len(fresh) > 0 {
		for code := range batch {
			r.flagged[code] = struct{}{}
		}

		codes := definitionCodes(fresh)
		r.log.Warn("discovered new attributes", zap.Int("count", len(fresh)), zap.Strings("codes", codes))

		accepted, err := r.decider.Decide(ctx, fresh)
		if err != nil {
			r.unflag(batch)
			return res, fmt.Errorf("attribute decision failed: %w", err)
		}

		if accepted {
			ids, err := r.catalog.UpsertAttributeDefinitions(ctx, fresh)
			if err != nil {
				r.unflag(batch)
				return res, fmt.Errorf("%w: %w", ErrRegistration, err)
			}
			for code, id := range ids {
				r.known[code] = id
				delete(r.flagged, code)
			}
			res.Registered = codes
			r.log.Info("registered attributes", zap.Int("count", len(ids)))
		} else {
			res.Declined = codes
			r.log.Warn("attributes declined, assignments will not be stored", zap.Strings("codes", codes))
		}
	}

	res.AllKnown = true
	for _, ref := range refs {
		if _, ok := r.known[ref.Composite()]; !ok {
			res.AllKnown = false
			break
		}
	}
	return res, nil
}

// Undecided reports whether ResolveOrDiscover would consult the decider for refs.
func (r *Registry) Undecided(refs []models.AttributeRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ref := range refs {
		code := ref.Composite()
		if _, ok := r.known[code]; ok {
			continue
		}
		if _, ok := r.flagged[code]; !ok {
			return true
		}
	}
	return false
}

// Partition splits refs into codes that can be assigned and codes that are
// dropped for now. Both lists are sorted and free of duplicates.
func (r *Registry) Partition(refs []models.AttributeRef) (known, dropped []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		code := ref.Composite()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if _, ok := r.known[code]; ok {
			known = append(known, code)
		} else {
			dropped = append(dropped, code)
		}
	}
	sort.Strings(known)
	sort.Strings(dropped)
	return known, dropped
}

func (r *Registry) unflag(batch map[string]struct{}) {
	for code := range batch {
		delete(r.flagged, code)
	}
}

func definitionCodes(defs []models.AttributeDefinition) []string {
	codes := make([]string, len(defs))
	for i, d := range defs {
		codes[i] = d.Code
	}
	return codes
}
