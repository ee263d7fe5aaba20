package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloo-solutions/recall/internal/gateway"
	"github.com/cloo-solutions/recall/internal/telemetry"
)

// SQLRetrievalResult is the structured outcome of a bridged SQL query.
// Backend failures are carried in Error rather than raised, so the caller's
// self-correction loop can feed the message back into a query-fixing prompt.
type SQLRetrievalResult struct {
	Columns []gateway.Column `json:"columns,omitempty"`
	Rows    [][]any          `json:"rows,omitempty"`
	Error   string           `json:"error,omitempty"`
}

var (
	lineComment = regexp.MustCompile(`--[^\n]*`)
	spaceRuns   = regexp.MustCompile("[ `\t\r\n]+")

	// Equality or LIKE predicates on tokenized fields get rewritten into
	// the index's native full-text match syntax.
	tokenPredicate = regexp.MustCompile(` ([a-z_]+_l?tks)( like | ?= ?)'([^']+)'`)
)

// SQLRetrieval normalizes a restricted SQL statement produced upstream by an
// LLM, rewrites token-field predicates into full-text MATCH clauses, and
// executes it via the gateway's SQL endpoint.
func (d *Dealer) SQLRetrieval(ctx context.Context, sqlText string, fetchSize int) *SQLRetrievalResult {
	ctx, span := telemetry.StartSpan(ctx, "Dealer.SQLRetrieval", telemetry.SpanAttributes{
		Operation: "sql",
	})
	defer span.End()

	if fetchSize <= 0 {
		fetchSize = 128
	}

	normalized := normalizeSQL(sqlText)
	if !strings.HasPrefix(strings.ToLower(normalized), "select") {
		return &SQLRetrievalResult{Error: "only SELECT statements are supported"}
	}

	rewritten := d.rewriteTokenPredicates(normalized)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	tbl, err := d.gw.SQL(ctx, rewritten, fetchSize)
	if err != nil {
		return &SQLRetrievalResult{Error: err.Error()}
	}
	return &SQLRetrievalResult{Columns: tbl.Columns, Rows: tbl.Rows}
}

// normalizeSQL strips comment markers and code fences, collapses whitespace
// and backticks, and drops percent signs.
func normalizeSQL(sqlText string) string {
	s := strings.ReplaceAll(sqlText, "```", " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "%", "")
	return strings.TrimSpace(s)
}

// rewriteTokenPredicates replaces each `fld = 'v'` / `fld like 'v'` on a
// tokenized field with a MATCH clause using OR semantics and a loose
// minimum-should-match, leaving every other clause untouched.
func (d *Dealer) rewriteTokenPredicates(sqlText string) string {
	type replacement struct{ from, to string }
	var replaces []replacement

	for _, m := range tokenPredicate.FindAllStringSubmatch(sqlText, -1) {
		fld, op, v := m[1], m[2], m[3]
		toks := d.tok.Tokenize(v)
		toks = append(toks, d.tok.FineGrained(toks)...)
		match := fmt.Sprintf(" MATCH(%s, '%s', 'operator=OR;minimum_should_match=30%%') ",
			fld, strings.Join(toks, " "))
		replaces = append(replaces, replacement{
			from: fmt.Sprintf("%s%s'%s'", fld, op, v),
			to:   match,
		})
	}

	for _, r := range replaces {
		sqlText = strings.Replace(sqlText, r.from, r.to, 1)
	}
	return sqlText
}
