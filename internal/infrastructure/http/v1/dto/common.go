// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/documents"
)

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult copies a domain list result.
func FromListResult[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: r.TotalCount, Limit: r.Limit, Offset: r.Offset}
}

// --- Common Filters ---

// ListQuery contains the query parameters shared by every list endpoint.
type ListQuery struct {
	Search          string   `form:"search"`
	IDs             []string `form:"ids"`
	IncludeInactive bool     `form:"includeInactive"`
	OrderBy         string   `form:"orderBy"`
	Limit           int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset          int      `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a domain filter.
func (q ListQuery) ToFilter() (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.IncludeInactive = q.IncludeInactive
	f.OrderBy = q.OrderBy
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	for _, raw := range q.IDs {
		v, err := id.Parse(raw)
		if err != nil {
			return f, err
		}
		f.IDs = append(f.IDs, v)
	}
	return f, nil
}

// DocumentListQuery adds document filters.
type DocumentListQuery struct {
	ListQuery
	Status      string     `form:"status" binding:"omitempty,oneof=draft in_progress confirmed completed cancelled"`
	WarehouseID string     `form:"warehouseId" binding:"omitempty,uuid"`
	DateFrom    *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo      *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts the query into a document filter.
func (q DocumentListQuery) ToFilter() (documents.ListFilter, error) {
	base, err := q.ListQuery.ToFilter()
	if err != nil {
		return documents.ListFilter{}, err
	}
	f := documents.ListFilter{ListFilter: base, DateFrom: q.DateFrom, DateTo: q.DateTo}
	if q.Status != "" {
		st := entity.Status(q.Status)
		f.Status = &st
	}
	if q.WarehouseID != "" {
		wh, err := id.Parse(q.WarehouseID)
		if err != nil {
			return f, err
		}
		f.WarehouseID = &wh
	}
	return f, nil
}

// --- Document header ---

// DocumentHeader holds the fields every document request may set.
type DocumentHeader struct {
	Number  string     `json:"number,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
	Comment string     `json:"comment,omitempty"`

	// Version, when set on update, must match the stored version
	Version int `json:"version,omitempty" binding:"min=0"`
}

func (h DocumentHeader) apply(d *entity.Document) {
	if h.Version > 0 {
		d.Version = h.Version
	}
	if h.Number != "" {
		d.Number = h.Number
	}
	if h.Date != nil {
		d.Date = *h.Date
	}
	d.Comment = h.Comment
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
