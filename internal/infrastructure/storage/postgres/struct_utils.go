package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns returns the "db" tag names of T in field order, descending
// into embedded structs. Called once per repository at construction.
//
//	cols := ExtractDBColumns[purchase.Purchase]()
//	// ["id", "version", "created_at", ..., "warehouse_id", "supplier_name", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			cols = append(cols, columnsOf(field.Type)...)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

type fieldInfo struct {
	index int
	dbTag string
}

type typeMetadata struct {
	fields   []fieldInfo
	embedded []int
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataOf(t reflect.Type) *typeMetadata {
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			meta.embedded = append(meta.embedded, i)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
	}

	typeCache.Store(t, meta)
	return meta
}

// StructToMap converts a struct (or pointer to one) to a column -> value map
// using "db" tags. Fields tagged "-" or untagged are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	fill(rv, res)
	return res
}

func fill(rv reflect.Value, res map[string]any) {
	meta := metadataOf(rv.Type())
	for _, fi := range meta.fields {
		res[fi.dbTag] = rv.Field(fi.index).Interface()
	}
	for _, idx := range meta.embedded {
		emb := rv.Field(idx)
		if emb.Kind() == reflect.Ptr {
			if emb.IsNil() {
				continue
			}
			emb = emb.Elem()
		}
		if emb.Kind() == reflect.Struct {
			fill(emb, res)
		}
	}
}

// RowValues returns the values of v for cols in order, for COPY and batch inserts.
func RowValues(v any, cols []string) []any {
	m := StructToMap(v)
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = m[c]
	}
	return row
}
