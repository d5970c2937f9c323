package resource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldKind is the type a query-string value is cast to before it reaches a filter.
type FieldKind int

const (
	String FieldKind = iota
	Int
	Float
	Bool
	Time
	ObjectID
)

func (k FieldKind) String() string {
	switch k {
	case Int:
		return "integer"
	case Float:
		return "number"
	case Bool:
		return "boolean"
	case Time:
		return "date"
	case ObjectID:
		return "object id"
	}
	return "string"
}

// Schema lists the bson fields a list request may filter, sort or project on.
// Keys not in the schema are rejected.
type Schema map[string]FieldKind

// WithBase returns a copy of s that also allows the store-owned fields.
// isActive is never queryable; the controller fixes the active scope.
func (s Schema) WithBase() Schema {
	out := Schema{"_id": ObjectID, "createdAt": Time, "updatedAt": Time}
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Schema) has(field string) bool {
	_, ok := s[field]
	return ok
}

// Cast converts a raw query value to the declared kind of field.
func (s Schema) Cast(field, raw string) (any, error) {
	kind, ok := s[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	raw = strings.TrimSpace(raw)
	var (
		v   any
		err error
	)
	switch kind {
	case Int:
		v, err = strconv.ParseInt(raw, 10, 64)
	case Float:
		v, err = strconv.ParseFloat(raw, 64)
	case Bool:
		v, err = strconv.ParseBool(raw)
	case Time:
		v, err = parseTime(raw)
	case ObjectID:
		v, err = primitive.ObjectIDFromHex(raw)
	default:
		v = raw
	}
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid %s", field, kind)
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}
