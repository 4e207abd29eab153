package model

import "time"

// Page sizes for run listings.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Response is the JSON envelope of every preview API reply. Exactly one of
// Data and Error is set.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination describes which slice of the run history a list reply holds.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions selects a page of runs, newest first.
type ListOptions struct {
	State  RunState // empty matches every state
	Limit  int
	Offset int
}

func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultListLimit}
}

// Clamp keeps Limit within [1, MaxListLimit] and Offset non-negative.
// A non-positive Limit falls back to DefaultListLimit.
func (o *ListOptions) Clamp() {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultListLimit
	case o.Limit > MaxListLimit:
		o.Limit = MaxListLimit
	}
	o.Offset = max(o.Offset, 0)
}

// PageOf reports the page o selects out of total matching runs.
func (o ListOptions) PageOf(total int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   o.Limit,
		Offset:  o.Offset,
		HasMore: o.Offset+o.Limit < total,
	}
}
