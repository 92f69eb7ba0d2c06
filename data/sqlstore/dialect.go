package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures the syntax differences between SQL backends.
type Dialect struct {
	Name string
	// Placeholder renders the n-th bind parameter, 1-based.
	Placeholder func(n int) string
	// Quote quotes a single identifier.
	Quote func(ident string) string
	// ILike is true when the backend supports ILIKE natively.
	ILike bool
	// Unlimited is the LIMIT value used when only an OFFSET is wanted,
	// empty when the backend accepts a bare OFFSET.
	Unlimited string
}

func question(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

var (
	Postgres = Dialect{Name: "postgres", Placeholder: dollar, Quote: doubleQuote, ILike: true}
	MySQL    = Dialect{Name: "mysql", Placeholder: question, Quote: backtick, Unlimited: "18446744073709551615"}
	SQLite   = Dialect{Name: "sqlite", Placeholder: question, Quote: doubleQuote, Unlimited: "-1"}
)
