package resource

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	DefaultSort  = "-createdAt"
)

var reservedParams = map[string]bool{
	"page": true, "sort": true, "limit": true, "fields": true, "search": true,
}

var filterOps = map[string]string{
	"gte": "$gte", "gt": "$gt", "lte": "$lte", "lt": "$lt", "ne": "$ne", "in": "$in",
}

var bracketKey = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\[([A-Za-z]+)\]$`)

// QueryError lists every rejected query parameter of a list request.
type QueryError struct {
	Errors []string
}

func (e *QueryError) Error() string {
	return "invalid query: " + strings.Join(e.Errors, "; ")
}

// Features shapes raw list parameters into a Query. Call the steps in order:
// Filter, Search, Sort, LimitFields, Paginate; then Query.
type Features struct {
	params url.Values
	schema Schema
	q      Query
	errs   []string
}

// NewFeatures starts from base, which must already carry the fixed scope
// (e.g. isActive) of the request.
func NewFeatures(base bson.M, params url.Values, schema Schema) *Features {
	filter := bson.M{}
	for k, v := range base {
		filter[k] = v
	}
	return &Features{params: params, schema: schema, q: Query{Filter: filter}}
}

func (f *Features) reject(format string, args ...any) {
	f.errs = append(f.errs, fmt.Sprintf(format, args...))
}

// Filter turns the non-reserved parameters into equality and range conditions.
// `price[gte]=10` becomes {price: {$gte: 10}}; a repeated plain key becomes $in.
func (f *Features) Filter() *Features {
	keys := make([]string, 0, len(f.params))
	for k := range f.params {
		if !reservedParams[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	conds := map[string]bson.M{}
	eq := map[string]any{}
	for _, key := range keys {
		field, op := key, ""
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], m[2]
		}
		if !f.schema.has(field) {
			f.reject("unknown query parameter %q", key)
			continue
		}
		if _, fixed := f.q.Filter[field]; fixed {
			f.reject("query parameter %q is not allowed", key)
			continue
		}
		vals := f.params[key]

		if op == "" {
			v, ok := f.castAll(field, vals)
			if !ok {
				continue
			}
			if len(v) == 1 {
				eq[field] = v[0]
			} else {
				eq[field] = bson.M{"$in": v}
			}
			continue
		}

		mop, ok := filterOps[strings.ToLower(op)]
		if !ok {
			f.reject("unsupported operator %q for %q", op, field)
			continue
		}
		if mop == "$in" {
			var parts []string
			for _, v := range vals {
				parts = append(parts, strings.Split(v, ",")...)
			}
			vals = parts
		} else {
			vals = vals[len(vals)-1:]
		}
		v, ok := f.castAll(field, vals)
		if !ok {
			continue
		}
		if conds[field] == nil {
			conds[field] = bson.M{}
		}
		if mop == "$in" {
			conds[field][mop] = v
		} else {
			conds[field][mop] = v[0]
		}
	}

	for field, v := range eq {
		if c, ok := conds[field]; ok {
			if in, isIn := v.(bson.M); isIn {
				c["$in"] = in["$in"]
			} else {
				c["$eq"] = v
			}
			continue
		}
		f.q.Filter[field] = v
	}
	for field, c := range conds {
		f.q.Filter[field] = c
	}
	return f
}

func (f *Features) castAll(field string, vals []string) ([]any, bool) {
	out := make([]any, 0, len(vals))
	for _, raw := range vals {
		v, err := f.schema.Cast(field, raw)
		if err != nil {
			f.reject("%v", err)
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// Search ORs a case-insensitive literal substring match over fields.
func (f *Features) Search(fields []string) *Features {
	term := strings.TrimSpace(f.params.Get("search"))
	if term == "" || len(fields) == 0 {
		return f
	}
	pattern := regexp.QuoteMeta(term)
	or := make(bson.A, 0, len(fields))
	for _, field := range fields {
		or = append(or, bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}})
	}
	f.q.Filter["$or"] = or
	return f
}

// Sort applies `sort=-priority,title`, defaulting to newest first. _id is
// appended in the direction of the first key so pages never overlap.
func (f *Features) Sort() *Features {
	raw := f.params.Get("sort")
	if strings.TrimSpace(raw) == "" {
		raw = DefaultSort
	}
	var spec bson.D
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir, part = -1, part[1:]
		} else if strings.HasPrefix(part, "+") {
			part = part[1:]
		}
		if !f.schema.has(part) {
			f.reject("unknown sort field %q", part)
			continue
		}
		if seen[part] {
			continue
		}
		seen[part] = true
		spec = append(spec, bson.E{Key: part, Value: dir})
	}
	if len(spec) == 0 {
		spec = bson.D{{Key: "createdAt", Value: -1}}
	}
	if !seen["_id"] {
		spec = append(spec, bson.E{Key: "_id", Value: spec[0].Value})
	}
	f.q.Sort = spec
	return f
}

// LimitFields projects onto `fields=title,slug`; a leading `-` excludes a field.
// Without the parameter only the internal version key is dropped.
func (f *Features) LimitFields() *Features {
	raw := strings.TrimSpace(f.params.Get("fields"))
	if raw == "" {
		f.q.Projection = bson.M{"__v": 0}
		return f
	}
	proj := bson.M{}
	var incl, excl bool
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		val := 1
		if strings.HasPrefix(part, "-") {
			val, part = 0, part[1:]
		}
		if !f.schema.has(part) {
			f.reject("unknown field %q", part)
			continue
		}
		if part != "_id" {
			incl = incl || val == 1
			excl = excl || val == 0
		}
		proj[part] = val
	}
	if incl && excl {
		f.reject("fields cannot mix included and excluded fields")
		return f
	}
	if len(proj) == 0 {
		proj = bson.M{"__v": 0}
	}
	f.q.Projection = proj
	return f
}

// Paginate reads page and limit, falling back to the defaults on bad input.
// limit is capped at MaxLimit.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.params.Get("page"), DefaultPage)
	limit := positiveInt(f.params.Get("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	f.q.Page = page
	f.q.Limit = limit
	f.q.Skip = (page - 1) * limit
	return f
}

func positiveInt(raw string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Query returns the shaped query or a *QueryError.
func (f *Features) Query() (Query, error) {
	if len(f.errs) > 0 {
		return Query{}, &QueryError{Errors: append([]string(nil), f.errs...)}
	}
	return f.q, nil
}

type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type Results[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// GetResults runs the page query and the count of the same filter concurrently.
// The two reads are independent, so total may drift from items under writes.
func GetResults[T any](ctx context.Context, store Store[T], q Query) (*Results[T], error) {
	var (
		items []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = store.Find(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = store.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}

	var pages int64
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return &Results[T]{
		Items:      items,
		Pagination: Pagination{Page: q.Page, Limit: q.Limit, Total: total, Pages: pages},
	}, nil
}
