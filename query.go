package apicall

import (
	"net/url"
	"reflect"
	"sort"
	"strings"
)

// queryBuilder keeps pairs in insertion order, unlike url.Values.
type queryBuilder struct {
	b strings.Builder
	n int
}

func (q *queryBuilder) add(key, value string) {
	q.n++
	if q.b.Len() == 0 {
		q.b.WriteByte('?')
	} else {
		q.b.WriteByte('&')
	}
	q.b.WriteString(url.QueryEscape(key))
	q.b.WriteByte('=')
	q.b.WriteString(url.QueryEscape(value))
}

func (q *queryBuilder) String() string {
	return q.b.String()
}

// encodeQuery emits all unconsumed non-nil query parameters. Simple values
// and collections of them are marked consumed. Objects are marked consumed
// only if at least one pair was written for them, so values with no query
// form (slices of objects, []byte) stay unsent. The result is empty or
// starts with "?".
func encodeQuery(params []*BoundParameter) string {
	var q queryBuilder
	for _, p := range params {
		if p.Source != SourceQuery || p.Consumed || isNil(p.Value) {
			continue
		}
		if eachScalar(p.Value, func(_ int, text string) { q.add(p.Name, text) }) {
			p.Consumed = true
			continue
		}
		prefix := ""
		if p.fromProperty {
			prefix = p.Name + "."
		}
		before := q.n
		flattenObject(&q, prefix, indirect(reflect.ValueOf(p.Value)), 1)
		if q.n > before {
			p.Consumed = true
		}
	}
	return q.String()
}

// flattenObject emits the members of a struct or string-keyed map as
// prefix+name pairs. Nested objects are followed depth more levels.
func flattenObject(q *queryBuilder, prefix string, v reflect.Value, depth int) {
	emit := func(key string, member reflect.Value) {
		member = indirect(member)
		if !member.IsValid() {
			return
		}
		if eachScalar(member.Interface(), func(_ int, text string) { q.add(key, text) }) {
			return
		}
		if depth > 0 {
			flattenObject(q, key+".", member, depth-1)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		for _, f := range getTypeInfo(v.Type()).fields {
			member := fieldByIndex(v, f.index)
			if !member.IsValid() {
				continue
			}
			emit(prefix+f.name, member)
		}
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			emit(prefix+k.String(), v.MapIndex(k))
		}
	}
}
