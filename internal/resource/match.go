package resource

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-process evaluation of the filter, sort and projection documents the
// feature builder produces. Covers the subset of the MongoDB query language
// this service emits.

// lookup resolves a dotted path, descending into arrays the way MongoDB does.
// Array values contribute their elements and the array itself.
func lookup(doc any, path []string) []any {
	if len(path) == 0 {
		if arr, ok := asArray(doc); ok {
			out := make([]any, 0, len(arr)+1)
			out = append(out, arr...)
			return append(out, doc)
		}
		return []any{doc}
	}
	if arr, ok := asArray(doc); ok {
		var out []any
		for _, el := range arr {
			out = append(out, lookup(el, path)...)
		}
		return out
	}
	m, ok := asMap(doc)
	if !ok {
		return nil
	}
	v, ok := m[path[0]]
	if !ok {
		return nil
	}
	return lookup(v, path[1:])
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return t, true
	case bson.D:
		return t.Map(), true
	}
	return nil, false
}

// asArray accepts any slice except []byte, so typed arguments such as
// []primitive.ObjectID work with $in the way the driver encodes them.
func asArray(v any) ([]any, bool) {
	switch t := v.(type) {
	case primitive.A:
		return t, true
	case []any:
		return t, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// docEntries returns the key/value pairs of a filter document in a stable order.
func docEntries(v any) ([]primitive.E, bool) {
	switch t := v.(type) {
	case bson.D:
		return t, true
	case bson.M:
		return sortedEntries(t), true
	case map[string]any:
		return sortedEntries(t), true
	}
	return nil, false
}

func sortedEntries(m map[string]any) []primitive.E {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]primitive.E, 0, len(keys))
	for _, k := range keys {
		out = append(out, primitive.E{Key: k, Value: m[k]})
	}
	return out
}

// matches reports whether doc satisfies filter.
func matches(doc bson.M, filter any) (bool, error) {
	entries, ok := docEntries(filter)
	if !ok {
		return false, fmt.Errorf("filter must be a document, got %T", filter)
	}
	for _, e := range entries {
		var (
			ok  bool
			err error
		)
		switch e.Key {
		case "$or", "$and":
			ok, err = matchLogical(doc, e.Key, e.Value)
		default:
			ok, err = matchField(lookup(doc, strings.Split(e.Key, ".")), e.Value)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc bson.M, op string, v any) (bool, error) {
	clauses, ok := asArray(v)
	if !ok {
		if ms, isSlice := v.([]bson.M); isSlice {
			for _, m := range ms {
				clauses = append(clauses, m)
			}
		} else {
			return false, fmt.Errorf("%s requires an array", op)
		}
	}
	for _, cl := range clauses {
		ok, err := matches(doc, cl)
		if err != nil {
			return false, err
		}
		if op == "$or" && ok {
			return true, nil
		}
		if op == "$and" && !ok {
			return false, nil
		}
	}
	return op == "$and", nil
}

func isOperatorDoc(v any) ([]primitive.E, bool) {
	entries, ok := docEntries(v)
	if !ok || len(entries) == 0 {
		return nil, false
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return entries, true
}

func matchField(candidates []any, cond any) (bool, error) {
	if re, ok := cond.(primitive.Regex); ok {
		return matchRegex(candidates, re)
	}
	ops, ok := isOperatorDoc(cond)
	if !ok {
		return anyEqual(candidates, cond), nil
	}
	for _, op := range ops {
		ok, err := matchOperator(candidates, op.Key, op.Value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(candidates []any, op string, arg any) (bool, error) {
	switch op {
	case "$eq":
		return anyEqual(candidates, arg), nil
	case "$ne":
		return !anyEqual(candidates, arg), nil
	case "$in", "$nin":
		list, ok := asArray(arg)
		if !ok {
			return false, fmt.Errorf("%s requires an array", op)
		}
		found := false
		for _, want := range list {
			if anyEqual(candidates, want) {
				found = true
				break
			}
		}
		return found == (op == "$in"), nil
	case "$gt", "$gte", "$lt", "$lte":
		for _, c := range candidates {
			cmp, ok := compareScalars(c, arg)
			if !ok {
				continue
			}
			switch {
			case op == "$gt" && cmp > 0,
				op == "$gte" && cmp >= 0,
				op == "$lt" && cmp < 0,
				op == "$lte" && cmp <= 0:
				return true, nil
			}
		}
		return false, nil
	case "$exists":
		want, _ := arg.(bool)
		return (len(candidates) > 0) == want, nil
	case "$regex":
		pattern, _ := arg.(string)
		return matchRegex(candidates, primitive.Regex{Pattern: pattern})
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}

func matchRegex(candidates []any, re primitive.Regex) (bool, error) {
	pattern := re.Pattern
	if strings.Contains(re.Options, "i") {
		pattern = "(?i)" + pattern
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex %q: %w", re.Pattern, err)
	}
	for _, c := range candidates {
		if s, ok := c.(string); ok && rx.MatchString(s) {
			return true, nil
		}
	}
	return false, nil
}

func anyEqual(candidates []any, want any) bool {
	if len(candidates) == 0 {
		return want == nil
	}
	for _, c := range candidates {
		if valuesEqual(c, want) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if cmp, ok := compareScalars(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize maps the numeric and time representations produced by Go code and
// by the bson codec onto one type each.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case time.Time:
		return primitive.NewDateTimeFromTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return primitive.NewDateTimeFromTime(*t)
	case *primitive.ObjectID:
		if t == nil {
			return nil
		}
		return *t
	case []any:
		return primitive.A(t)
	}
	return v
}

// typeRank follows the BSON comparison order for the types stored here.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case bson.M, bson.D, map[string]any:
		return 4
	case primitive.A:
		return 5
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime:
		return 9
	}
	return 100
}

// compareScalars orders two values of the same comparable kind.
func compareScalars(a, b any) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case primitive.DateTime:
		if y, ok := b.(primitive.DateTime); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(x[:], y[:]), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

// compareForSort orders any two values, falling back to type rank.
func compareForSort(a, b any) int {
	if cmp, ok := compareScalars(a, b); ok {
		return cmp
	}
	ra, rb := typeRank(normalize(a)), typeRank(normalize(b))
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	return 0
}

func sortKey(doc bson.M, path string) any {
	vals := lookup(doc, strings.Split(path, "."))
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func sortDocs(docs []bson.M, spec bson.D) {
	if len(spec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range spec {
			cmp := compareForSort(sortKey(docs[i], e.Key), sortKey(docs[j], e.Key))
			if cmp == 0 {
				continue
			}
			if dir, _ := compareScalars(e.Value, -1); dir == 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// project applies an inclusion or exclusion projection to top-level keys.
// A dotted key projects its root field.
func project(doc bson.M, proj bson.M) (bson.M, error) {
	if len(proj) == 0 {
		return doc, nil
	}
	include, exclude := map[string]bool{}, map[string]bool{}
	keepID := true
	for k, v := range proj {
		root := strings.SplitN(k, ".", 2)[0]
		on := truthy(v)
		if root == "_id" {
			keepID = on
			continue
		}
		if on {
			include[root] = true
		} else {
			exclude[root] = true
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		return nil, fmt.Errorf("projection cannot mix inclusion and exclusion")
	}
	out := bson.M{}
	for k, v := range doc {
		switch {
		case k == "_id":
			if keepID {
				out[k] = v
			}
		case len(include) > 0:
			if include[k] {
				out[k] = v
			}
		case !exclude[k]:
			out[k] = v
		}
	}
	return out, nil
}

func truthy(v any) bool {
	switch t := normalize(v).(type) {
	case bool:
		return t
	case float64:
		return t != 0
	}
	return v != nil
}
