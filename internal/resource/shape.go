package resource

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

var jsonNameCache sync.Map // reflect.Type -> map[string]string

// jsonNames maps the bson field names of t to the JSON keys they marshal
// under. Inline embedded structs are flattened the way both encoders do.
func jsonNames(t reflect.Type) map[string]string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := jsonNameCache.Load(t); ok {
		return cached.(map[string]string)
	}
	out := map[string]string{}
	collectNames(t, out)
	jsonNameCache.Store(t, out)
	return out
}

func collectNames(t reflect.Type, out map[string]string) {
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		bname, bopts, _ := strings.Cut(f.Tag.Get("bson"), ",")
		if f.Anonymous && strings.Contains(bopts, "inline") {
			collectNames(f.Type, out)
			continue
		}
		if bname == "-" {
			continue
		}
		if bname == "" {
			bname = strings.ToLower(f.Name)
		}
		jname, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if jname == "-" {
			continue
		}
		if jname == "" {
			jname = f.Name
		}
		out[bname] = jname
	}
}

// shapeItems applies proj to the JSON form of items so a projected list
// carries only the selected keys instead of zero values for the rest. It
// reports false when proj names no field of T and items can be sent as is.
func shapeItems[T any](items []T, proj bson.M) ([]map[string]json.RawMessage, bool, error) {
	names := jsonNames(reflect.TypeOf((*T)(nil)).Elem())
	include, exclude := map[string]bool{}, map[string]bool{}
	keepID := true
	for k, v := range proj {
		root, _, _ := strings.Cut(k, ".")
		jname, ok := names[root]
		if !ok {
			continue
		}
		switch {
		case root == "_id":
			keepID = truthy(v)
			if !keepID {
				exclude[jname] = true
			}
		case truthy(v):
			include[jname] = true
		default:
			exclude[jname] = true
		}
	}
	if len(include) == 0 && len(exclude) == 0 {
		return nil, false, nil
	}
	if id, ok := names["_id"]; ok && keepID && len(include) > 0 {
		include[id] = true
	}

	out := make([]map[string]json.RawMessage, 0, len(items))
	for i := range items {
		raw, err := json.Marshal(items[i])
		if err != nil {
			return nil, false, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, false, err
		}
		for k := range fields {
			if (len(include) > 0 && !include[k]) || exclude[k] {
				delete(fields, k)
			}
		}
		out = append(out, fields)
	}
	return out, true, nil
}
