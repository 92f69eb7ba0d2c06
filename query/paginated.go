package query

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/paging"
	"github.com/ncobase/ohsmetrics/types"
	"github.com/ncobase/ohsmetrics/validator"
)

// PageParams select one page of a table. A non-empty Cursor, or Mode
// cursor, switches to keyset pagination on SortBy.
type PageParams struct {
	Table    string        `json:"table" validate:"required"`
	Columns  []string      `json:"columns,omitempty"`
	Filters  []data.Filter `json:"filters,omitempty"`
	SortBy   string        `json:"sort_by,omitempty"`
	Order    types.Order   `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Cursor   string        `json:"cursor,omitempty"`
	Mode     paging.Mode   `json:"mode,omitempty" validate:"omitempty,oneof=offset cursor"`
}

func (p *PageParams) cursorMode() bool {
	return p.Mode == paging.ModeCursor || p.Cursor != ""
}

// Page is the data of a successful paginated query.
type Page struct {
	Items []types.Row `json:"items"`
	Info  paging.Info `json:"page"`
}

// Paginated reads one page of rows.
type Paginated struct {
	base
	deps Deps
}

// NewPaginated is the Constructor of the paginated strategy.
func NewPaginated(deps Deps) Strategy {
	return &Paginated{base: base{name: TypePaginated}, deps: deps}
}

func (s *Paginated) params(params any) (*PageParams, any, error) {
	const op = "paginated.validate"
	p, err := paramsAs[PageParams](op, params)
	if err != nil {
		return nil, nil, err
	}
	if err := validator.Struct(op, p); err != nil {
		return nil, nil, err
	}
	if p.Page < 1 && !(p.cursorMode() && p.Page == 0) {
		return nil, nil, ecode.NewValidationError(op, "page must be at least 1").With("page", p.Page)
	}
	if limit := s.deps.Query.MaxPageSize; p.PageSize < 1 || (limit > 0 && p.PageSize > limit) {
		return nil, nil, ecode.NewValidationError(op, ecode.OutOfRange("page_size")).
			With("page_size", p.PageSize).With("max", limit)
	}
	var cursor any
	if p.cursorMode() {
		if p.SortBy == "" {
			return nil, nil, ecode.NewValidationError(op, ecode.FieldIsRequired("sort_by")+" for cursor pagination")
		}
		if p.Cursor != "" {
			if cursor, err = paging.DecodeCursor(p.Cursor); err != nil {
				return nil, nil, ecode.NewValidationError(op, ecode.FieldIsInvalid("cursor"))
			}
		}
	}
	return p, cursor, nil
}

// ValidateParams implements Strategy.
func (s *Paginated) ValidateParams(params any) error {
	_, _, err := s.params(params)
	return err
}

// CacheKey implements Strategy.
func (s *Paginated) CacheKey(params any) string {
	p, _, err := s.params(params)
	if err != nil {
		return ""
	}
	return CanonicalKey(s.name, p)
}

// Execute implements Strategy.
func (s *Paginated) Execute(ctx context.Context, params any) *Result {
	p, cursor, err := s.params(params)
	if err != nil {
		return s.HandleError(ctx, err)
	}
	if s.deps.Provider == nil {
		return s.HandleError(ctx, ecode.NewProviderError("paginated.execute", errors.New("no data provider")))
	}

	order := types.ParseOrder(string(p.Order))
	var sort []types.Criterion
	if p.SortBy != "" {
		sort = []types.Criterion{{Field: p.SortBy, Order: order}}
	}

	if p.cursorMode() {
		return s.keyset(ctx, p, cursor, order, sort)
	}

	res, err := s.deps.Provider.Read(ctx, data.ReadRequest{
		Table:   p.Table,
		Columns: p.Columns,
		Filters: p.Filters,
		Sort:    sort,
		Offset:  paging.Offset(p.Page, p.PageSize),
		Limit:   p.PageSize,
	})
	if err != nil {
		return s.HandleError(ctx, err)
	}
	info := paging.OffsetInfo(p.Page, p.PageSize, len(res.Rows), res.Count)
	return Ok(&Page{Items: res.Rows, Info: info}, map[string]any{"strategy": s.name, "mode": paging.ModeOffset})
}

func (s *Paginated) keyset(ctx context.Context, p *PageParams, cursor any, order types.Order, sort []types.Criterion) *Result {
	filters := slices.Clone(p.Filters)
	if cursor != nil {
		op := data.OpGt
		if order == types.Descending {
			op = data.OpLt
		}
		filters = append(filters, data.Filter{Column: p.SortBy, Op: op, Value: cursor})
	}
	columns := p.Columns
	if len(columns) > 0 && !slices.Contains(columns, p.SortBy) {
		columns = append(slices.Clone(columns), p.SortBy)
	}

	res, err := s.deps.Provider.Read(ctx, data.ReadRequest{
		Table:   p.Table,
		Columns: columns,
		Filters: filters,
		Sort:    sort,
		Limit:   p.PageSize + 1,
	})
	if err != nil {
		return s.HandleError(ctx, err)
	}

	rows, more := paging.Trim(res.Rows, p.PageSize)
	info := paging.Info{
		Mode:            paging.ModeCursor,
		PageSize:        p.PageSize,
		HasNextPage:     more,
		HasPreviousPage: p.Cursor != "",
	}
	if len(rows) > 0 {
		last, ok := rows[len(rows)-1][p.SortBy]
		if !ok {
			return s.HandleError(ctx, ecode.NewProviderError("paginated.cursor", fmt.Errorf("sort column %q missing from rows", p.SortBy)))
		}
		if info.NextCursor, err = paging.EncodeCursor(last); err != nil {
			return s.HandleError(ctx, err)
		}
	}
	return Ok(&Page{Items: rows, Info: info}, map[string]any{"strategy": s.name, "mode": paging.ModeCursor})
}
