package sqlstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ncobase/ohsmetrics/data"
	"github.com/ncobase/ohsmetrics/ecode"
	"github.com/ncobase/ohsmetrics/types"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Query is a rendered statement with its bind arguments.
type Query struct {
	SQL  string
	Args []any
}

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) ident(s string) (string, error) {
	if !identRe.MatchString(s) {
		return "", ecode.NewValidationError("sqlstore.build", ecode.FieldIsInvalid(fmt.Sprintf("identifier %q", s)))
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = b.d.Quote(p)
	}
	return strings.Join(parts, "."), nil
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

var comparisons = map[data.Op]string{
	data.OpEq:  "=",
	data.OpNeq: "<>",
	data.OpGt:  ">",
	data.OpGte: ">=",
	data.OpLt:  "<",
	data.OpLte: "<=",
}

func (b *builder) condition(f data.Filter) (string, error) {
	col, err := b.ident(f.Column)
	if err != nil {
		return "", err
	}
	if op, ok := comparisons[f.Op]; ok {
		if f.Value == nil {
			switch f.Op {
			case data.OpEq:
				return col + " IS NULL", nil
			case data.OpNeq:
				return col + " IS NOT NULL", nil
			}
		}
		return col + " " + op + " " + b.bind(f.Value), nil
	}
	switch f.Op {
	case data.OpLike:
		return col + " LIKE " + b.bind(f.Value), nil
	case data.OpILike:
		if b.d.ILike {
			return col + " ILIKE " + b.bind(f.Value), nil
		}
		return "LOWER(" + col + ") LIKE LOWER(" + b.bind(f.Value) + ")", nil
	case data.OpIn:
		values, err := data.InValues(f.Value)
		if err != nil {
			return "", ecode.NewValidationError("sqlstore.build", ecode.FieldIsInvalid(f.Column))
		}
		if len(values) == 0 {
			return "1 = 0", nil
		}
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil
	}
	return "", ecode.NewValidationError("sqlstore.build", ecode.NotSupported(fmt.Sprintf("operator %q", f.Op)))
}

// Build renders the page query and the matching count query of req.
func Build(d Dialect, req data.ReadRequest) (rows Query, count Query, err error) {
	b := &builder{d: d}

	table, err := b.ident(req.Table)
	if err != nil {
		return rows, count, err
	}

	columns := "*"
	if len(req.Columns) > 0 {
		quoted := make([]string, len(req.Columns))
		for i, c := range req.Columns {
			if quoted[i], err = b.ident(c); err != nil {
				return rows, count, err
			}
		}
		columns = strings.Join(quoted, ", ")
	}

	var where string
	if len(req.Filters) > 0 {
		conds := make([]string, len(req.Filters))
		for i, f := range req.Filters {
			if conds[i], err = b.condition(f); err != nil {
				return rows, count, err
			}
		}
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	count = Query{SQL: "SELECT COUNT(*) FROM " + table + where, Args: b.args}

	var sb strings.Builder
	sb.WriteString("SELECT " + columns + " FROM " + table + where)
	if len(req.Sort) > 0 {
		orders := make([]string, len(req.Sort))
		for i, c := range req.Sort {
			col, err := b.ident(c.Field)
			if err != nil {
				return rows, count, err
			}
			dir := "ASC"
			if c.Order == types.Descending {
				dir = "DESC"
			}
			orders[i] = col + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	switch {
	case req.Limit > 0:
		sb.WriteString(" LIMIT " + strconv.Itoa(req.Limit))
	case req.Offset > 0 && d.Unlimited != "":
		sb.WriteString(" LIMIT " + d.Unlimited)
	}
	if req.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(req.Offset))
	}
	rows = Query{SQL: sb.String(), Args: b.args}
	return rows, count, nil
}
