package mapper

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/core/models"
	"gotourism_loader/internal/loader/normalize"
)

var fixedNow = time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

func newMapper() *Mapper {
	m := New("ATDW", normalize.Australia, nil)
	m.Now = func() time.Time { return fixedNow }
	return m
}

func parse(t *testing.T, doc string) *atdw.ProductDetail {
	t.Helper()
	d, err := atdw.ParseDetail([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}
	return d
}

const resortDoc = `{
  "productId": "56b26b3a2cbcbe7073ae8e2a",
  "productName": "Byron Bay Beach Resort",
  "productCategoryId": "ACCOMM",
  "productCategoryDescription": "Accommodation",
  "stateName": "NSW",
  "areaName": "Northern Rivers",
  "cityName": "Byron Bay",
  "addresses": [
    {"addressPurpose": "POSTAL", "addressLine1": "PO Box 1", "geocodeGdaLatitude": "-28.60", "geocodeGdaLongitude": "153.50"},
    {"addressPurpose": "PHYSICAL", "addressLine1": "1 Beach Rd", "cityName": "Byron Bay", "addressPostalCode": 2481, "geocodeGdaLatitude": "-28.6450", "geocodeGdaLongitude": "153.6050"}
  ],
  "communication": [
    {"attributeIdCommunication": "CAEMENQUIR", "communicationDetail": " Stay@ByronResort.COM "},
    {"attributeIdCommunication": "CAPHNUMBUA", "communicationDetail": "(02) 6685 1234"},
    {"attributeIdCommunication": "CAWEBADDR", "communicationDetail": "https://byronresort.com"},
    {"attributeIdCommunication": "CABOOKURL", "communicationDetail": "https://book.byronresort.com"},
    {"attributeIdCommunication": "", "communicationDetail": ""}
  ],
  "multimedia": [
    {"attributeIdMultimediaContent": "IMAGE", "altText": "Pool"},
    {"attributeIdMultimediaContent": "IMAGE", "serverPath": "https://assets.atdw-online.com.au/images/", "imagePath": "a.jpeg", "altText": "Front", "width": 1920},
    {"imageUrl": "https://cdn.example.com/b.jpg", "caption": "Beach"}
  ],
  "attributes": [
    {"attributeTypeId": "ENTITY FAC", "attributeTypeIdDescription": "Entity Facility", "attributeId": "POOL", "attributeIdDescription": "Swimming Pool"},
    {"attributeTypeId": "ENTITY FAC", "attributeId": "POOL"},
    {"attributeTypeId": "ACCESSIBILITY", "attributeSubType1Id": "DISASSIST", "attributeSubType1IdDescription": "Disabled assistance"},
    {"attributeTypeId": "ENTITY FAC"}
  ],
  "verticalClassifications": [
    {"productTypeId": "RESORT", "productTypeDescription": "Resort"},
    {"productTypeId": "RESORT"},
    {"productTypeId": ""}
  ],
  "services": [{"serviceName": "Ocean Suite", "serviceType": "ROOM", "occupancyAdults": "2", "occupancyChildren": "x"}],
  "rates": [
    {"ratesType": "STANDARD", "priceFrom": "$1,250.00", "priceTo": "1500", "free": "false"},
    {"priceFrom": "POA", "attributeIdCurrency": "nzd", "free": "TRUE"}
  ],
  "deals": [
    {"dealName": "Winter escape", "dealPrice": "199.50", "dealStartDate": "2025-07-01", "dealEndDate": "2025-08-31"},
    {"dealName": "Open ended", "dealStartDate": "soon"}
  ],
  "unmappedSection": {"keep": true}
}`

func TestMap_CoreFields(t *testing.T) {
	rec, err := newMapper().Map(parse(t, resortDoc))
	if err != nil {
		t.Fatal(err)
	}
	p := rec.Product
	if p.Source != "ATDW" || p.ExternalID != "56b26b3a2cbcbe7073ae8e2a" || p.Name != "Byron Bay Beach Resort" {
		t.Fatalf("unexpected product %+v", p)
	}
	if p.CategoryCode != "ACCOMM" || p.State != "NSW" || p.Region != "Northern Rivers" || p.City != "Byron Bay" {
		t.Fatalf("unexpected location fields %+v", p)
	}
	if !p.IsActive {
		t.Fatal("product without status must be active")
	}
	if p.Latitude == nil || *p.Latitude != -28.6450 || *p.Longitude != 153.6050 {
		t.Fatalf("physical address coordinates expected, got %v,%v", p.Latitude, p.Longitude)
	}
	if !strings.Contains(string(p.RawSource), "unmappedSection") {
		t.Fatal("raw payload must keep unrecognized sections")
	}
	if len(rec.ProductTypes) != 1 || rec.ProductTypes[0].Code != "RESORT" {
		t.Fatalf("unexpected product types %+v", rec.ProductTypes)
	}
}

func TestMap_MissingID(t *testing.T) {
	_, err := newMapper().Map(parse(t, `{"productName":"nameless"}`))
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestProductCoordinates(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		wantLat *float64
	}{
		{
			name:    "falls back to first address with both",
			doc:     `{"productId":"1","addresses":[{"addressPurpose":"PHYSICAL","geocodeGdaLatitude":"-33.1"},{"addressPurpose":"POSTAL","geocodeGdaLatitude":"-33.8","geocodeGdaLongitude":"151.2"}]}`,
			wantLat: ptr(-33.8),
		},
		{
			name:    "addressType is accepted as the tag",
			doc:     `{"productId":"1","addresses":[{"addressType":"POSTAL","geocodeGdaLatitude":"-33.8","geocodeGdaLongitude":"151.2"},{"addressType":"PHYSICAL","geocodeGdaLatitude":"-34.0","geocodeGdaLongitude":"151.0"}]}`,
			wantLat: ptr(-34.0),
		},
		{
			name: "none qualify",
			doc:  `{"productId":"1","addresses":[{"geocodeGdaLatitude":"","geocodeGdaLongitude":"151.2"},{"geocodeGdaLatitude":"abc","geocodeGdaLongitude":"151.2"}]}`,
		},
		{
			name: "outside the bounding box",
			doc:  `{"productId":"1","addresses":[{"addressPurpose":"PHYSICAL","geocodeGdaLatitude":"51.5","geocodeGdaLongitude":"-0.12"}]}`,
		},
		{
			name: "no addresses",
			doc:  `{"productId":"1"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := newMapper().Map(parse(t, tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			got := rec.Product.Latitude
			if tc.wantLat == nil {
				if got != nil || rec.Product.Longitude != nil {
					t.Fatalf("expected null coordinates, got %v,%v", got, rec.Product.Longitude)
				}
				return
			}
			if got == nil || *got != *tc.wantLat {
				t.Fatalf("expected lat %v, got %v", *tc.wantLat, got)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestIsActive(t *testing.T) {
	cases := map[string]bool{
		`{"productId":"1"}`:                                    true,
		`{"productId":"1","attributeIdAtdwStatus":""}`:         true,
		`{"productId":"1","attributeIdAtdwStatus":"ACTIVE"}`:   true,
		`{"productId":"1","attributeIdAtdwStatus":"INACTIVE"}`: false,
		`{"productId":"1","attributeIdAtdwStatus":"expired"}`:  false,
		`{"productId":"1","status":"DELETED"}`:                 false,
		`{"productId":"1","status":"PENDING"}`:                 true,
	}
	for doc, want := range cases {
		rec, err := newMapper().Map(parse(t, doc))
		if err != nil {
			t.Fatal(err)
		}
		if rec.Product.IsActive != want {
			t.Errorf("%s: active = %v, want %v", doc, rec.Product.IsActive, want)
		}
	}
}

func TestIsActive_ConfiguredTokens(t *testing.T) {
	m := New("ATDW", normalize.Australia, []string{"withdrawn"})
	rec, _ := m.Map(parse(t, `{"productId":"1","status":"WITHDRAWN"}`))
	if rec.Product.IsActive {
		t.Fatal("configured token must mark product inactive")
	}
	rec, _ = m.Map(parse(t, `{"productId":"1","status":"INACTIVE"}`))
	if !rec.Product.IsActive {
		t.Fatal("tokens outside the configured set keep the product active")
	}
}

func TestAddresses(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	if len(rec.Addresses) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(rec.Addresses))
	}
	postal, phys := rec.Addresses[0], rec.Addresses[1]
	if postal.Kind != models.AddressPostal || phys.Kind != models.AddressPhysical {
		t.Fatalf("unexpected kinds %s %s", postal.Kind, phys.Kind)
	}
	if phys.Postcode != "2481" || phys.Line1 != "1 Beach Rd" || phys.Latitude == nil {
		t.Fatalf("unexpected physical address %+v", phys)
	}
}

func TestClassifyContact(t *testing.T) {
	cases := []struct {
		code, value, want string
	}{
		{"CAEMENQUIR", "x", models.ContactEmail},
		{"CAEMENBOOF", "bookings@x.com", models.ContactEmail},
		{"CAPHNUMBUA", "0412345678", models.ContactPhone},
		{"MOBILEPHONE", "0412345678", models.ContactPhone},
		{"CAWEBADDR", "www.x.com", models.ContactWebsite},
		{"CABOOKURL", "https://book.x.com", models.ContactBooking},
		{"", "info@x.com", models.ContactEmail},
		{"OTHER", "HTTPS://x.com", models.ContactWebsite},
		{"", "1800 123 456", models.ContactPhone},
		{"", "call the front desk", models.ContactPhone},
	}
	for _, tc := range cases {
		if got := classifyContact(tc.code, tc.value); got != tc.want {
			t.Errorf("classifyContact(%q, %q) = %s, want %s", tc.code, tc.value, got, tc.want)
		}
	}
}

func TestContacts(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	want := []models.Contact{
		{Kind: models.ContactEmail, Value: "stay@byronresort.com"},
		{Kind: models.ContactPhone, Value: "+61266851234"},
		{Kind: models.ContactWebsite, Value: "https://byronresort.com"},
		{Kind: models.ContactBooking, Value: "https://book.byronresort.com"},
	}
	if len(rec.Contacts) != len(want) {
		t.Fatalf("expected %d contacts, got %+v", len(want), rec.Contacts)
	}
	for i := range want {
		if rec.Contacts[i] != want[i] {
			t.Errorf("contact %d = %+v, want %+v", i, rec.Contacts[i], want[i])
		}
	}
}

func TestContacts_InvalidPhoneKeepsRawValue(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, `{"productId":"1","communication":[{"attributeIdCommunication":"CAPHNUMBUA","communicationDetail":" 13 00 "}]}`))
	if len(rec.Contacts) != 1 || rec.Contacts[0].Value != "13 00" {
		t.Fatalf("unexpected contacts %+v", rec.Contacts)
	}
}

func TestMedia(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	if len(rec.Media) != 2 {
		t.Fatalf("item without URL must be dropped, got %d items", len(rec.Media))
	}
	hero, gallery := rec.Media[0], rec.Media[1]
	if hero.URL != "https://assets.atdw-online.com.au/images/a.jpeg" || hero.Ordinal != 1 || hero.Role != models.MediaRoleHero {
		t.Fatalf("unexpected hero %+v", hero)
	}
	if hero.MediaType != "image" || hero.Provider != "ATDW" {
		t.Fatalf("unexpected hero type %+v", hero)
	}
	if gallery.URL != "https://cdn.example.com/b.jpg" || gallery.Ordinal != 2 || gallery.Role != models.MediaRoleGallery {
		t.Fatalf("unexpected gallery %+v", gallery)
	}

	var meta map[string]any
	if err := json.Unmarshal(hero.Meta, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["alt_text"] != "Front" || meta["width"] != "1920" || meta["caption"] != nil {
		t.Fatalf("unexpected meta %v", meta)
	}
}

func TestAttributes(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	if len(rec.Attributes) != 2 {
		t.Fatalf("expected 2 distinct attributes, got %+v", rec.Attributes)
	}
	pool, access := rec.Attributes[0], rec.Attributes[1]
	if pool.Composite() != "ENTITY_FAC__POOL" || pool.Label != "Swimming Pool" || pool.TypeDescription != "Entity Facility" {
		t.Fatalf("unexpected pool attribute %+v", pool)
	}
	if access.Composite() != "ACCESSIBILITY__DISASSIST" || access.Label != "Disabled assistance" {
		t.Fatalf("unexpected accessibility attribute %+v", access)
	}
}

func TestServices(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	s := rec.Services[0]
	if s.Name != "Ocean Suite" || s.Kind != "ROOM" || s.OccupancyAdults == nil || *s.OccupancyAdults != 2 {
		t.Fatalf("unexpected service %+v", s)
	}
	if s.OccupancyChildren != nil {
		t.Fatal("non-numeric occupancy must be null")
	}
	if !strings.Contains(string(s.Details), "Ocean Suite") {
		t.Fatalf("details must hold the source record, got %s", s.Details)
	}
}

func TestRates(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	if len(rec.Rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rec.Rates))
	}
	std, poa := rec.Rates[0], rec.Rates[1]
	if std.Price == nil || std.Price.String() != "1250" || std.Currency != "AUD" {
		t.Fatalf("unexpected rate %+v", std)
	}
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !std.StartDate.Equal(today) || !std.EndDate.Equal(normalize.FarFuture) {
		t.Fatalf("unexpected validity %v..%v", std.StartDate, std.EndDate)
	}
	if poa.Price != nil || poa.Currency != "NZD" {
		t.Fatalf("unparseable price must be null, got %+v", poa)
	}

	var c map[string]any
	if err := json.Unmarshal(std.Constraints, &c); err != nil {
		t.Fatal(err)
	}
	if c["rate_type"] != "STANDARD" || c["price_to"] != "1500" || c["is_free"] != false || c["raw"] == nil {
		t.Fatalf("unexpected constraints %v", c)
	}
	_ = json.Unmarshal(poa.Constraints, &c)
	if c["is_free"] != true {
		t.Fatal("free flag is case-insensitive")
	}
}

func TestDeals(t *testing.T) {
	rec, _ := newMapper().Map(parse(t, resortDoc))
	winter, open := rec.Deals[0], rec.Deals[1]
	if winter.Title != "Winter escape" || winter.Price == nil || winter.Price.String() != "199.5" {
		t.Fatalf("unexpected deal %+v", winter)
	}
	if winter.StartDate.Format("2006-01-02") != "2025-07-01" || winter.EndDate.Format("2006-01-02") != "2025-08-31" {
		t.Fatalf("unexpected window %v..%v", winter.StartDate, winter.EndDate)
	}
	if open.Price != nil || !open.EndDate.Equal(normalize.FarFuture) || open.StartDate.Format("2006-01-02") != "2025-06-15" {
		t.Fatalf("unexpected defaults %+v", open)
	}
}

func TestRates_OutOfRangeValues(t *testing.T) {
	doc := `{
  "productId": "p-phone",
  "rates": [
    {"priceFrom": "1800 123 456", "attributeIdCurrency": "AUD$ "},
    {"priceFrom": "99999999.994", "attributeIdCurrency": " nzd"},
    {"priceFrom": "100000000", "attributeIdCurrency": "Australian dollars"}
  ],
  "deals": [{"dealName": "Typo", "dealPrice": "$250,000,000"}]
}`
	rec, err := newMapper().Map(parse(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	phone, edge, over := rec.Rates[0], rec.Rates[1], rec.Rates[2]
	if phone.Price != nil || phone.Currency != "AUD" {
		t.Fatalf("phone number in price must be null with default currency, got %+v", phone)
	}
	if edge.Price == nil || edge.Price.String() != "99999999.99" || edge.Currency != "NZD" {
		t.Fatalf("largest storable price must survive, got %+v", edge)
	}
	if over.Price != nil || over.Currency != "AUD" {
		t.Fatalf("unexpected rate %+v", over)
	}
	if rec.Deals[0].Price != nil {
		t.Fatalf("oversized deal price must be null, got %v", rec.Deals[0].Price)
	}
}

func TestMap_UnencodableChildIsError(t *testing.T) {
	d := &atdw.ProductDetail{
		ProductID: "p-bad",
		Raw:       json.RawMessage(`{"productId":"p-bad"}`),
		Rates:     []atdw.Rate{{PriceFrom: "10", Raw: json.RawMessage(`{"priceFrom":`)}},
	}
	if _, err := newMapper().Map(d); err == nil || !strings.Contains(err.Error(), "rates") {
		t.Fatalf("expected rates error, got %v", err)
	}

	d.Rates = nil
	d.Deals = []atdw.Deal{{Name: "x", Raw: json.RawMessage(`not json`)}}
	if _, err := newMapper().Map(d); err == nil || !strings.Contains(err.Error(), "deals") {
		t.Fatalf("expected deals error, got %v", err)
	}
}
