// Package jsonapi provides the JSON:API document types used by the ATAS
// and comm HTTP APIs. Only the subset the APIs emit is modelled: single
// and list documents, to-one relationships, meta, paging links and
// error objects.
package jsonapi

import (
	"encoding/json"
	"time"
)

// Document is a top-level JSON:API document. Exactly one of Data and
// Errors is set.
type Document struct {
	Data   any     `json:"data"`
	Meta   *Meta   `json:"meta,omitempty"`
	Links  *Links  `json:"links,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Meta holds non-standard meta-information, e.g. paging totals.
type Meta map[string]any

// Links are the paging links of a list document.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
}

// Resource is a JSON:API resource object.
type Resource struct {
	Type          string        `json:"type"`
	ID            string        `json:"id"`
	Attributes    any           `json:"attributes"`
	Relationships Relationships `json:"relationships,omitempty"`
}

// Relationships maps relationship names to their linkage.
type Relationships map[string]*Relationship

// Relationship holds resource linkage.
type Relationship struct {
	Data any `json:"data"`
}

// ResourceIdentifier names a resource without its attributes.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RelatedTo builds a to-one relationship.
func RelatedTo(resourceType, id string) *Relationship {
	return &Relationship{Data: ResourceIdentifier{Type: resourceType, ID: id}}
}

// Error is a JSON:API error object. ID carries the request's
// correlation id.
type Error struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// NewResource creates a resource.
func NewResource(resourceType, id string, attrs any) *Resource {
	return &Resource{Type: resourceType, ID: id, Attributes: attrs}
}

// NewSingleResponse wraps one resource.
func NewSingleResponse(resource *Resource) *Document {
	return &Document{Data: resource}
}

// NewListResponse wraps a list. A nil list is sent as [].
func NewListResponse(resources []*Resource) *Document {
	if resources == nil {
		resources = []*Resource{}
	}
	return &Document{Data: resources}
}

// NewErrorResponse wraps error objects.
func NewErrorResponse(errors ...Error) *Document {
	return &Document{Errors: errors}
}

// NewError creates an error object.
func NewError(status, title, detail string) Error {
	return Error{Status: status, Title: title, Detail: detail}
}

// DateTime is a time serialized as RFC 3339 in UTC; the zero time is null.
type DateTime time.Time

// NewDateTime creates a DateTime.
func NewDateTime(t time.Time) DateTime { return DateTime(t) }

// Time returns the underlying time.
func (dt DateTime) Time() time.Time { return time.Time(dt) }

// Ptr returns a pointer to a copy of dt.
func (dt DateTime) Ptr() *DateTime { return &dt }

// MarshalJSON implements json.Marshaler.
func (dt DateTime) MarshalJSON() ([]byte, error) {
	t := time.Time(dt)
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
