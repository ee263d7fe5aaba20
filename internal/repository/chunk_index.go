package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/recall/internal/domain"
	"github.com/cloo-solutions/recall/internal/gateway"
)

// ChunkIndex is the Postgres/pgvector implementation of the index gateway.
// Lexical matching runs over per-field tsvectors with the caller's boosts;
// vector matching uses cosine distance on the pgvector column. A hit
// qualifies when either side matches, and the two scores add.
type ChunkIndex struct {
	pool *pgxpool.Pool
}

func NewChunkIndex(pool *pgxpool.Pool) *ChunkIndex {
	return &ChunkIndex{pool: pool}
}

// Columns that may appear in dynamically assembled clauses. Anything not
// listed here never reaches the SQL text.
var (
	matchColumns = map[string]bool{
		"title_tks":       true,
		"title_sm_tks":    true,
		"important_kwd":   true,
		"important_tks":   true,
		"content_ltks":    true,
		"content_sm_ltks": true,
	}
	aggregateColumns = map[string]bool{
		"docnm_kwd": true,
		"doc_id":    true,
		"kb_id":     true,
	}
	sortColumns = map[string]bool{
		"page_num_int":         true,
		"top_int":              true,
		"create_timestamp_flt": true,
	}
)

const hitColumns = `id, kb_id, doc_id, docnm_kwd, title_tks, title_sm_tks,
	content_with_weight, content_ltks, content_sm_ltks,
	array_to_string(important_kwd, E'\t'), important_tks, img_id, position_int,
	available_int, page_num_int, top_int, create_timestamp_flt, embedding`

func (x *ChunkIndex) Search(ctx context.Context, index string, req *gateway.SearchRequest) (*gateway.SearchResponse, error) {
	args := &argList{}

	where := []string{"index_name = " + args.add(index)}
	if len(req.KBIDs) > 0 {
		where = append(where, "kb_id = ANY("+args.add(req.KBIDs)+")")
	}
	if len(req.DocIDs) > 0 {
		where = append(where, "doc_id = ANY("+args.add(req.DocIDs)+")")
	}
	switch req.Availability {
	case domain.AvailabilityEnabledOnly:
		where = append(where, "available_int = 1")
	case domain.AvailabilityDisabledOnly:
		where = append(where, "available_int = 0")
	}

	var matchPreds, scoreTerms []string
	var tsqArg string
	if lexemes := sanitizeTokens(req.Keywords); len(lexemes) > 0 && len(req.MatchFields) > 0 {
		tsqArg = args.add(strings.Join(lexemes, " | "))

		// The minimum-should-match percentage becomes an absolute count of
		// query terms the field must contain. With a count of one the plain
		// OR tsquery already expresses the requirement.
		var lexArg, countArg string
		need := minShouldMatch(req.MinimumShouldMatch, len(lexemes))
		if need > 1 {
			lexArg = args.add(lexemes)
			countArg = args.add(need)
		}

		for _, f := range req.MatchFields {
			if !matchColumns[f.Name] {
				continue
			}
			vec := tsVectorExpr(f.Name)
			pred := fmt.Sprintf("%s @@ to_tsquery('simple', %s)", vec, tsqArg)
			if need > 1 {
				pred = fmt.Sprintf(
					"(SELECT count(*) FROM unnest(%s::text[]) AS lex WHERE %s @@ to_tsquery('simple', lex)) >= %s",
					lexArg, vec, countArg)
			}
			matchPreds = append(matchPreds, pred)
			scoreTerms = append(scoreTerms,
				fmt.Sprintf("%g * ts_rank(%s, to_tsquery('simple', %s))", f.Boost, vec, tsqArg))
		}
	}

	var knnPred string
	if req.KNN != nil && !req.KNN.Vector.IsEmpty() {
		vecArg := args.add(pgvector.NewVector(req.KNN.Vector.Values))
		sim := fmt.Sprintf("(1 - (embedding <=> %s))", vecArg)
		knnPred = fmt.Sprintf("(embedding IS NOT NULL AND %s >= %s)",
			sim, args.add(req.KNN.SimilarityFloor))
		scoreTerms = append(scoreTerms, fmt.Sprintf("coalesce(%s, 0)", sim))
	}

	// Either side of the hybrid query qualifies a row on its own.
	var qualify []string
	if len(matchPreds) > 0 {
		qualify = append(qualify, "("+strings.Join(matchPreds, " OR ")+")")
	}
	if knnPred != "" {
		qualify = append(qualify, knnPred)
	}
	if len(qualify) > 0 {
		where = append(where, "("+strings.Join(qualify, " OR ")+")")
	}
	whereSQL := strings.Join(where, " AND ")
	whereArgs := append([]any(nil), args.args...)

	scoreExpr := "0"
	if len(scoreTerms) > 0 {
		scoreExpr = strings.Join(scoreTerms, " + ")
	}

	highlightExpr := "''"
	if req.Highlight && tsqArg != "" {
		highlightExpr = fmt.Sprintf(
			`ts_headline('simple', content_with_weight, to_tsquery('simple', %s),
				'StartSel=<em>, StopSel=</em>, MaxFragments=3, FragmentDelimiter=" ... "')`,
			tsqArg)
	}

	resp := &gateway.SearchResponse{Aggregations: map[string][]gateway.Bucket{}}

	if err := x.pool.QueryRow(ctx,
		"SELECT count(*) FROM chunks WHERE "+whereSQL, whereArgs...,
	).Scan(&resp.Total); err != nil {
		return nil, err
	}

	limit := req.PageSize
	if req.TopK > 0 && limit > req.TopK {
		limit = req.TopK
	}
	offset := (req.Page - 1) * req.PageSize

	query := fmt.Sprintf(
		"SELECT %s, %s AS score, %s AS highlight FROM chunks WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		hitColumns, scoreExpr, highlightExpr, whereSQL,
		orderClause(req.Sort), args.add(limit), args.add(offset))

	rows, err := x.pool.Query(ctx, query, args.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		resp.Hits = append(resp.Hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if req.AggregateField != "" && aggregateColumns[req.AggregateField] {
		buckets, err := x.aggregate(ctx, req.AggregateField, whereSQL, whereArgs)
		if err != nil {
			return nil, err
		}
		resp.Aggregations[req.AggregateField] = buckets
	}

	return resp, nil
}

func (x *ChunkIndex) aggregate(ctx context.Context, field, whereSQL string, args []any) ([]gateway.Bucket, error) {
	query := fmt.Sprintf(
		"SELECT %s, count(*) FROM chunks WHERE %s GROUP BY 1 ORDER BY 2 DESC, 1 ASC LIMIT 1000",
		field, whereSQL)

	rows, err := x.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []gateway.Bucket
	for rows.Next() {
		var b gateway.Bucket
		if err := rows.Scan(&b.Value, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHit(row rowScanner) (gateway.Hit, error) {
	var (
		hit          gateway.Hit
		kbID, docID  string
		docName      string
		titleTks     string
		titleSmTks   string
		content      string
		contentLtks  string
		contentSm    string
		importantKwd string
		importantTks string
		imgID        string
		positions    string
		available    int
		pageNum      int
		topFlag      int
		createTS     float64
		embedding    *pgvector.Vector
		score        float64
		highlight    string
	)
	if err := row.Scan(&hit.ID, &kbID, &docID, &docName, &titleTks, &titleSmTks,
		&content, &contentLtks, &contentSm, &importantKwd, &importantTks,
		&imgID, &positions, &available, &pageNum, &topFlag, &createTS,
		&embedding, &score, &highlight); err != nil {
		return gateway.Hit{}, err
	}

	hit.Score = score
	hit.Fields = map[string]string{
		"kb_id":                kbID,
		"doc_id":               docID,
		"docnm_kwd":            docName,
		"title_tks":            titleTks,
		"title_sm_tks":         titleSmTks,
		"content_with_weight":  content,
		"content_ltks":         contentLtks,
		"content_sm_ltks":      contentSm,
		"important_kwd":        importantKwd,
		"important_tks":        importantTks,
		"img_id":               imgID,
		"position_int":         positions,
		"available_int":        strconv.Itoa(available),
		"page_num_int":         strconv.Itoa(pageNum),
		"top_int":              strconv.Itoa(topFlag),
		"create_timestamp_flt": strconv.FormatFloat(createTS, 'f', -1, 64),
	}
	if embedding != nil {
		vals := embedding.Slice()
		hit.Embedding = domain.NewVector(vals)
	}
	if highlight != "" {
		hit.HighlightFragments = []string{highlight}
	}
	return hit, nil
}

func orderClause(sorts []gateway.SortField) string {
	if len(sorts) == 0 {
		return "score DESC, id ASC"
	}
	var parts []string
	for _, s := range sorts {
		if !sortColumns[s.Field] {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, s.Field+" "+dir)
	}
	if len(parts) == 0 {
		return "score DESC, id ASC"
	}
	return strings.Join(parts, ", ") + ", id ASC"
}

// MATCH(fld, 'tokens', 'options') clauses arrive from the structured query
// bridge; they become tsquery predicates here. The options string always
// requests OR semantics, which is what the translation produces.
var matchClause = regexp.MustCompile(`MATCH\(([a-z_]+), '([^']*)', '([^']*)'\)`)

var limitClause = regexp.MustCompile(`(?i)\blimit\s+\d+`)

func (x *ChunkIndex) SQL(ctx context.Context, query string, fetchSize int) (*gateway.SQLResult, error) {
	q := matchClause.ReplaceAllStringFunc(query, func(m string) string {
		sub := matchClause.FindStringSubmatch(m)
		fld, toks, opts := sub[1], sub[2], sub[3]
		if !matchColumns[fld] {
			return "FALSE"
		}
		lexemes := sanitizeTokens(strings.Fields(toks))
		if len(lexemes) == 0 {
			return "FALSE"
		}
		vec := tsVectorExpr(fld)
		if need := minShouldMatch(matchOption(opts, "minimum_should_match"), len(lexemes)); need > 1 {
			quoted := make([]string, len(lexemes))
			for i, lex := range lexemes {
				quoted[i] = "'" + lex + "'"
			}
			return fmt.Sprintf(
				"(SELECT count(*) FROM unnest(ARRAY[%s]) AS lex WHERE %s @@ to_tsquery('simple', lex)) >= %d",
				strings.Join(quoted, ","), vec, need)
		}
		return fmt.Sprintf("%s @@ to_tsquery('simple', '%s')", vec, strings.Join(lexemes, " | "))
	})

	if !limitClause.MatchString(q) && fetchSize > 0 {
		q = fmt.Sprintf("%s LIMIT %d", q, fetchSize)
	}

	rows, err := x.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &gateway.SQLResult{}
	for _, fd := range rows.FieldDescriptions() {
		col := gateway.Column{Name: fd.Name}
		if t, ok := rows.Conn().TypeMap().TypeForOID(fd.DataTypeOID); ok {
			col.Type = t.Name
		}
		result.Columns = append(result.Columns, col)
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, vals)
	}
	return result, rows.Err()
}

func tsVectorExpr(col string) string {
	if col == "important_kwd" {
		return "to_tsvector('simple', array_to_string(important_kwd, ' '))"
	}
	return fmt.Sprintf("to_tsvector('simple', %s)", col)
}

// sanitizeTokens strips tsquery syntax from each token and drops tokens
// reduced to nothing.
func sanitizeTokens(tokens []string) []string {
	var lexemes []string
	for _, t := range tokens {
		if lex := sanitizeLexeme(t); lex != "" {
			lexemes = append(lexemes, lex)
		}
	}
	return lexemes
}

// matchOption extracts one key from a "key=value;key=value" option string.
func matchOption(opts, key string) string {
	for _, part := range strings.Split(opts, ";") {
		if k, v, ok := strings.Cut(part, "="); ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

const defaultMinShouldMatchPct = 30

// minShouldMatch converts a minimum-should-match spec like "10%" into the
// number of query terms a field must contain to qualify.
func minShouldMatch(spec string, terms int) int {
	pct := defaultMinShouldMatchPct
	if strings.HasSuffix(spec, "%") {
		if v, err := strconv.Atoi(strings.TrimSuffix(spec, "%")); err == nil && v > 0 {
			pct = v
		}
	}
	need := (terms*pct + 99) / 100
	if need < 1 {
		need = 1
	}
	return need
}

// sanitizeLexeme strips everything tsquery could interpret as syntax.
func sanitizeLexeme(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'', '\\', '<', '>', ' ', '\t':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// argList builds positional query arguments.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}
