package models

import "strings"

// CodeSeparator joins the type code and the attribute code.
const CodeSeparator = "__"

// AttributeRef is one presence attribute as referenced by a product.
type AttributeRef struct {
	TypeCode        string `json:"type_code"`
	TypeDescription string `json:"type_description"`
	Code            string `json:"code"`
	Label           string `json:"label"`
}

// Composite returns the catalog key, e.g. "ENTITY_FAC__POOL".
func (a AttributeRef) Composite() string {
	return CompositeCode(a.TypeCode, a.Code)
}

func CompositeCode(typeCode, code string) string {
	return strings.ReplaceAll(typeCode, " ", "_") + CodeSeparator + code
}

const DataTypeBool = "bool"

// AttributeDefinition это запись общего каталога атрибутов.
type AttributeDefinition struct {
	ID          int64  `db:"attribute_id" json:"attribute_id"`
	Code        string `db:"code" json:"code"`
	RawCode     string `json:"raw_code"`
	Label       string `db:"label" json:"label"`
	DataType    string `db:"data_type" json:"data_type"`
	Facet       bool   `db:"facet" json:"facet"`
	Description string `db:"description" json:"description"`
}
