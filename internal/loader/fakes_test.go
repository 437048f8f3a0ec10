package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/core/services"
)

var errInjected = errors.New("injected store failure")

// fakeSource serves canned product documents by id.
type fakeSource struct {
	summaries []atdw.ProductSummary
	docs      map[string]string
	errs      map[string]error
	fetches   atomic.Int32
	listErr   error
}

func newFakeSource(ids ...string) *fakeSource {
	s := &fakeSource{docs: map[string]string{}, errs: map[string]error{}}
	for _, id := range ids {
		s.add(id, productDoc(id, "ENTITY FAC", "POOL"))
	}
	return s
}

func (s *fakeSource) add(id, doc string) {
	s.summaries = append(s.summaries, atdw.ProductSummary{ProductID: atdw.FlexString(id)})
	s.docs[id] = doc
}

func (s *fakeSource) Search(context.Context, atdw.Filter) ([]atdw.ProductSummary, error) {
	return s.summaries, s.listErr
}

func (s *fakeSource) Delta(context.Context, string, []string) ([]atdw.ProductSummary, error) {
	return s.summaries, s.listErr
}

func (s *fakeSource) FetchDetail(ctx context.Context, id string) (*atdw.ProductDetail, error) {
	s.fetches.Add(1)
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, atdw.ErrNotFound
	}
	return atdw.ParseDetail([]byte(doc))
}

func productDoc(id, attrType, attrCode string) string {
	return fmt.Sprintf(`{
		"productId": %q,
		"productName": "Product %s",
		"productCategoryId": "ACCOMM",
		"productCategoryDescription": "Accommodation",
		"stateName": "VIC",
		"addresses": [{"addressPurpose": "PHYSICAL", "addressLine1": "1 Main St", "geocodeGdaLatitude": "-37.81", "geocodeGdaLongitude": "144.96"}],
		"communication": [{"attributeIdCommunication": "CAPHENQUIR", "communicationDetail": "03 9999 8888"}],
		"multimedia": [{"imageUrl": "https://img.example.com/%s.jpg"}],
		"attributes": [{"attributeTypeId": %q, "attributeId": %q, "attributeIdDescription": "Feature"}],
		"verticalClassifications": [{"productTypeId": "HOTEL", "productTypeDescription": "Hotel"}],
		"rates": [{"priceFrom": "120.00"}]
	}`, id, id, id, attrType, attrCode)
}

type productRow struct {
	id       uuid.UUID
	hash     string
	media    int
	contacts int
	attrs    []string
}

// fakeStore keeps committed rows in memory. Transactions stage changes in an
// overlay that savepoints snapshot.
type fakeStore struct {
	mu        sync.Mutex
	products  map[string]productRow
	catalog   map[string]int64
	nextAttr  int64
	failOn    map[string]error // external id -> error from ReplaceMedia
	commitErr error
	commits   int
	pings     atomic.Int32
	upserts   atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]productRow{},
		catalog:  map[string]int64{},
		failOn:   map[string]error{},
	}
}

var (
	_ services.Gateway          = (*fakeStore)(nil)
	_ services.AttributeCatalog = (*fakeStore)(nil)
)

func (s *fakeStore) Begin(context.Context) (services.ProductWriter, error) {
	return &fakeTx{store: s, staged: map[string]productRow{}, savepoints: map[string]map[string]productRow{}}, nil
}

func (s *fakeStore) Ping(context.Context) error {
	s.pings.Add(1)
	return nil
}

func (s *fakeStore) LoadAttributeCodes(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.catalog))
	for k, v := range s.catalog {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) UpsertAttributeDefinitions(_ context.Context, defs []models.AttributeDefinition) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]int64, len(defs))
	for _, d := range defs {
		id, ok := s.catalog[d.Code]
		if !ok {
			s.nextAttr++
			id = s.nextAttr
			s.catalog[d.Code] = id
		}
		ids[d.Code] = id
	}
	return ids, nil
}

func (s *fakeStore) committed(externalID string) (productRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.products["ATDW/"+externalID]
	return row, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

type fakeTx struct {
	store      *fakeStore
	staged     map[string]productRow
	byID       map[uuid.UUID]string
	savepoints map[string]map[string]productRow
	done       bool
}

func copyRows(in map[string]productRow) map[string]productRow {
	out := make(map[string]productRow, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (t *fakeTx) Savepoint(_ context.Context, name string) error {
	t.savepoints[name] = copyRows(t.staged)
	return nil
}

func (t *fakeTx) RollbackToSavepoint(_ context.Context, name string) error {
	snap, ok := t.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %s does not exist", name)
	}
	t.staged = copyRows(snap)
	return nil
}

func (t *fakeTx) ReleaseSavepoint(_ context.Context, name string) error {
	delete(t.savepoints, name)
	return nil
}

func (t *fakeTx) UpsertCategory(context.Context, string, string) (int64, error) {
	return 1, nil
}

func (t *fakeTx) UpsertProduct(_ context.Context, p *models.Product, _ *int64) (uuid.UUID, bool, error) {
	t.store.upserts.Add(1)
	key := p.Source + "/" + p.ExternalID
	row, ok := t.staged[key]
	if !ok {
		row, ok = t.store.committed(p.ExternalID)
	}
	inserted := !ok
	if inserted {
		row.id = uuid.New()
	}
	row.hash = p.ContentHash
	t.staged[key] = row
	if t.byID == nil {
		t.byID = map[uuid.UUID]string{}
	}
	t.byID[row.id] = key
	return row.id, inserted, nil
}

func (t *fakeTx) ProductFingerprint(_ context.Context, source, externalID string) (string, bool, error) {
	if row, ok := t.staged[source+"/"+externalID]; ok {
		return row.hash, true, nil
	}
	row, ok := t.store.committed(externalID)
	return row.hash, ok, nil
}

func (t *fakeTx) update(id uuid.UUID, fn func(*productRow)) {
	key := t.byID[id]
	row := t.staged[key]
	fn(&row)
	t.staged[key] = row
}

func (t *fakeTx) ReplaceProductTypes(context.Context, uuid.UUID, *int64, []models.ProductType) error {
	return nil
}

func (t *fakeTx) ReplaceAddresses(context.Context, uuid.UUID, []models.Address) error { return nil }

func (t *fakeTx) ReplaceContacts(_ context.Context, id uuid.UUID, contacts []models.Contact) error {
	t.update(id, func(r *productRow) { r.contacts = len(contacts) })
	return nil
}

func (t *fakeTx) ReplaceMedia(_ context.Context, id uuid.UUID, media []models.MediaItem) error {
	key := t.byID[id]
	if err := t.store.failOn[key[len("ATDW/"):]]; err != nil {
		return err
	}
	t.update(id, func(r *productRow) { r.media = len(media) })
	return nil
}

func (t *fakeTx) ReplaceServices(context.Context, uuid.UUID, []models.Service) error { return nil }
func (t *fakeTx) ReplaceRates(context.Context, uuid.UUID, []models.Rate) error       { return nil }
func (t *fakeTx) ReplaceDeals(context.Context, uuid.UUID, []models.Deal) error       { return nil }

func (t *fakeTx) ReplaceAttributeAssignments(_ context.Context, id uuid.UUID, codes []string) error {
	t.update(id, func(r *productRow) { r.attrs = append([]string(nil), codes...) })
	return nil
}

func (t *fakeTx) Commit() error {
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	if err := t.store.commitErr; err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for k, v := range t.staged {
		t.store.products[k] = v
	}
	t.store.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.done = true
	return nil
}
