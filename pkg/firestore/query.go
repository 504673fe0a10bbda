package firestore

import (
	"github.com/serverlessresearch/gcrest/pkg/values"
)

// Operators for field, composite and unary filters.
const (
	OpLessThan           = "LESS_THAN"
	OpLessThanOrEqual    = "LESS_THAN_OR_EQUAL"
	OpGreaterThan        = "GREATER_THAN"
	OpGreaterThanOrEqual = "GREATER_THAN_OR_EQUAL"
	OpEqual              = "EQUAL"
	OpNotEqual           = "NOT_EQUAL"
	OpArrayContains      = "ARRAY_CONTAINS"
	OpIn                 = "IN"
	OpArrayContainsAny   = "ARRAY_CONTAINS_ANY"
	OpNotIn              = "NOT_IN"

	OpAnd = "AND"
	OpOr  = "OR"

	OpIsNaN     = "IS_NAN"
	OpIsNull    = "IS_NULL"
	OpIsNotNaN  = "IS_NOT_NAN"
	OpIsNotNull = "IS_NOT_NULL"
)

const (
	Ascending  = "ASCENDING"
	Descending = "DESCENDING"
)

type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type Projection struct {
	Fields []FieldReference `json:"fields"`
}

type CollectionSelector struct {
	CollectionID   string `json:"collectionId"`
	AllDescendants bool   `json:"allDescendants,omitempty"`
}

// Filter holds exactly one of its members.
type Filter struct {
	Composite *CompositeFilter `json:"compositeFilter,omitempty"`
	Field     *FieldFilter     `json:"fieldFilter,omitempty"`
	Unary     *UnaryFilter     `json:"unaryFilter,omitempty"`
}

type CompositeFilter struct {
	Op      string   `json:"op"`
	Filters []Filter `json:"filters"`
}

type FieldFilter struct {
	Field FieldReference `json:"field"`
	Op    string         `json:"op"`
	Value values.Value   `json:"value"`
}

type UnaryFilter struct {
	Op    string         `json:"op"`
	Field FieldReference `json:"field"`
}

func Where(fieldPath, op string, v values.Value) Filter {
	return Filter{Field: &FieldFilter{Field: FieldReference{fieldPath}, Op: op, Value: v}}
}

func Unary(fieldPath, op string) Filter {
	return Filter{Unary: &UnaryFilter{Op: op, Field: FieldReference{fieldPath}}}
}

func And(filters ...Filter) Filter {
	return Filter{Composite: &CompositeFilter{Op: OpAnd, Filters: filters}}
}

func Or(filters ...Filter) Filter {
	return Filter{Composite: &CompositeFilter{Op: OpOr, Filters: filters}}
}

type Order struct {
	Field     FieldReference `json:"field"`
	Direction string         `json:"direction,omitempty"`
}

// Cursor is a position in a result set; Before places it just before the
// matching document.
type Cursor struct {
	Values []values.Value `json:"values"`
	Before bool           `json:"before,omitempty"`
}

// StructuredQuery is the body of a runQuery request.
type StructuredQuery struct {
	Select  *Projection          `json:"select,omitempty"`
	From    []CollectionSelector `json:"from,omitempty"`
	Where   *Filter              `json:"where,omitempty"`
	OrderBy []Order              `json:"orderBy,omitempty"`
	StartAt *Cursor              `json:"startAt,omitempty"`
	EndAt   *Cursor              `json:"endAt,omitempty"`
	Offset  int                  `json:"offset,omitempty"`
	Limit   int                  `json:"limit,omitempty"`
}

// NewQuery starts a query over one collection id.
func NewQuery(collectionID string) *StructuredQuery {
	return &StructuredQuery{From: []CollectionSelector{{CollectionID: collectionID}}}
}

// AllDescendants widens the last from-clause to every collection with the
// same id below the parent.
func (q *StructuredQuery) AllDescendants() *StructuredQuery {
	if n := len(q.From); n > 0 {
		q.From[n-1].AllDescendants = true
	}
	return q
}

func (q *StructuredQuery) SelectFields(paths ...string) *StructuredQuery {
	p := &Projection{}
	for _, path := range paths {
		p.Fields = append(p.Fields, FieldReference{path})
	}
	q.Select = p
	return q
}

func (q *StructuredQuery) Filter(f Filter) *StructuredQuery {
	q.Where = &f
	return q
}

func (q *StructuredQuery) OrderByField(fieldPath, direction string) *StructuredQuery {
	q.OrderBy = append(q.OrderBy, Order{FieldReference{fieldPath}, direction})
	return q
}

func (q *StructuredQuery) Start(before bool, vals ...values.Value) *StructuredQuery {
	q.StartAt = &Cursor{Values: vals, Before: before}
	return q
}

func (q *StructuredQuery) End(before bool, vals ...values.Value) *StructuredQuery {
	q.EndAt = &Cursor{Values: vals, Before: before}
	return q
}

func (q *StructuredQuery) WithOffset(n int) *StructuredQuery {
	q.Offset = n
	return q
}

func (q *StructuredQuery) WithLimit(n int) *StructuredQuery {
	q.Limit = n
	return q
}

// RunQueryOptions pair a query with its read consistency.
type RunQueryOptions struct {
	Query          *StructuredQuery
	Transaction    string
	NewTransaction *TransactionOptions
	ReadTime       string
}

func (o RunQueryOptions) String() string {
	var obj object
	if o.Query != nil {
		obj.raw("structuredQuery", marshal(o.Query))
	}
	consistency(&obj, o.Transaction, o.NewTransaction, o.ReadTime)
	return obj.String()
}
