package atdw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString accepts a JSON string, number, bool or null.
// The feed is inconsistent about quoting numeric fields.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("atdw: expected scalar, got %s", data[:1])
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

// Trim returns the value without surrounding whitespace.
func (f FlexString) Trim() string { return strings.TrimSpace(string(f)) }

type ProductSummary struct {
	ProductID         FlexString `json:"productId"`
	ProductName       FlexString `json:"productName"`
	ProductCategoryID FlexString `json:"productCategoryId"`
	StateName         FlexString `json:"stateName"`
	AreaName          FlexString `json:"areaName"`
	CityName          FlexString `json:"cityName"`
	ProductUpdateDate FlexString `json:"productUpdateDate"`
	Status            FlexString `json:"status"`
}

type searchResponse struct {
	Products        []ProductSummary `json:"products"`
	NumberOfResults int              `json:"numberOfResults"`
}

// ProductDetail is the /product payload. Raw keeps the whole document
// so fields without a typed view survive into storage.
type ProductDetail struct {
	ProductID                  FlexString `json:"productId"`
	ProductName                FlexString `json:"productName"`
	ProductCategoryID          FlexString `json:"productCategoryId"`
	ProductCategoryDescription FlexString `json:"productCategoryDescription"`
	StateName                  FlexString `json:"stateName"`
	AreaName                   FlexString `json:"areaName"`
	CityName                   FlexString `json:"cityName"`
	AtdwStatus                 FlexString `json:"attributeIdAtdwStatus"`
	Status                     FlexString `json:"status"`

	Addresses               []Address                `json:"addresses"`
	Communication           []Communication          `json:"communication"`
	Multimedia              []Multimedia             `json:"multimedia"`
	Attributes              []Attribute              `json:"attributes"`
	VerticalClassifications []VerticalClassification `json:"verticalClassifications"`
	Services                []Service                `json:"services"`
	Rates                   []Rate                   `json:"rates"`
	Deals                   []Deal                   `json:"deals"`

	Raw json.RawMessage `json:"-"`
}

// ParseDetail decodes a product document and keeps a copy of it in Raw.
func ParseDetail(body []byte) (*ProductDetail, error) {
	var d ProductDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product detail: %w", err)
	}
	d.Raw = append(json.RawMessage(nil), body...)
	return &d, nil
}

type Address struct {
	AddressPurpose FlexString `json:"addressPurpose"`
	AddressType    FlexString `json:"addressType"`
	Line1          FlexString `json:"addressLine1"`
	Line2          FlexString `json:"addressLine2"`
	Line3          FlexString `json:"addressLine3"`
	CityName       FlexString `json:"cityName"`
	StateName      FlexString `json:"stateName"`
	PostalCode     FlexString `json:"addressPostalCode"`
	CountryName    FlexString `json:"countryName"`
	Latitude       FlexString `json:"geocodeGdaLatitude"`
	Longitude      FlexString `json:"geocodeGdaLongitude"`
}

type Communication struct {
	Type   FlexString `json:"attributeIdCommunication"`
	Detail FlexString `json:"communicationDetail"`
}

type Multimedia struct {
	ImageURL     FlexString `json:"imageUrl"`
	URL          FlexString `json:"url"`
	ServerPath   FlexString `json:"serverPath"`
	ImagePath    FlexString `json:"imagePath"`
	ContentType  FlexString `json:"attributeIdMultimediaContent"`
	AltText      FlexString `json:"altText"`
	Copyright    FlexString `json:"copyright"`
	Caption      FlexString `json:"caption"`
	Width        FlexString `json:"width"`
	Height       FlexString `json:"height"`
	Photographer FlexString `json:"photographer"`
}

type Attribute struct {
	TypeID                FlexString `json:"attributeTypeId"`
	TypeDescription       FlexString `json:"attributeTypeIdDescription"`
	AttributeID           FlexString `json:"attributeId"`
	AttributeDescription  FlexString `json:"attributeIdDescription"`
	SubType1ID            FlexString `json:"attributeSubType1Id"`
	SubType1IDDescription FlexString `json:"attributeSubType1IdDescription"`
}

type VerticalClassification struct {
	ProductTypeID          FlexString `json:"productTypeId"`
	ProductTypeDescription FlexString `json:"productTypeDescription"`
}

type Service struct {
	Name              FlexString `json:"serviceName"`
	Type              FlexString `json:"serviceType"`
	OccupancyAdults   FlexString `json:"occupancyAdults"`
	OccupancyChildren FlexString `json:"occupancyChildren"`
	BedConfiguration  FlexString `json:"bedConfiguration"`

	Raw json.RawMessage `json:"-"`
}

func (s *Service) UnmarshalJSON(data []byte) error {
	type plain Service
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	s.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type Rate struct {
	RatesType            FlexString `json:"ratesType"`
	RatesTypeDescription FlexString `json:"ratesTypeDescription"`
	PriceFrom            FlexString `json:"priceFrom"`
	PriceTo              FlexString `json:"priceTo"`
	Free                 FlexString `json:"free"`
	Comment              FlexString `json:"rateComment"`
	Currency             FlexString `json:"attributeIdCurrency"`

	Raw json.RawMessage `json:"-"`
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	type plain Rate
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type Deal struct {
	DealID          FlexString `json:"dealId"`
	Name            FlexString `json:"dealName"`
	Price           FlexString `json:"dealPrice"`
	Type            FlexString `json:"attributeIdDealType"`
	TypeDescription FlexString `json:"attributeIdDealTypeDescription"`
	Description     FlexString `json:"dealDescription"`
	Comment         FlexString `json:"dealComment"`
	URL             FlexString `json:"dealUrl"`
	URLWithTracking FlexString `json:"dealUrlWithTracking"`
	StartDate       FlexString `json:"dealStartDate"`
	EndDate         FlexString `json:"dealEndDate"`
	RedeemStartDate FlexString `json:"dealRedeemStartDate"`
	RedeemEndDate   FlexString `json:"dealRedeemEndDate"`
	Terms           FlexString `json:"dealTerms"`
	Inclusions      FlexString `json:"dealInclusions"`

	Raw json.RawMessage `json:"-"`
}

func (d *Deal) UnmarshalJSON(data []byte) error {
	type plain Deal
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}
