package gateway

import (
	"strings"

	"github.com/valyala/fastjson"

	"github.com/numgate/numgate/pkg/domain/lookup"
)

// DefaultStripFields are the administrative and ownership keys the upstream
// sources decorate their payloads with. They never reach the user.
var DefaultStripFields = []string{
	"owner", "api_owner", "dev", "developer", "credit", "credits",
	"channel", "join", "telegram", "bot", "powered_by", "by", "note",
	"message", "api", "update", "status",
}

// normalize reduces whatever shape a source answered with into a Result.
// Sources disagree on structure: some wrap records in a "result" or "data"
// array, some return a bare array, some a flat object. Unparseable bodies
// normalize to an empty result, which the gateway treats as "no data".
func normalize(number string, body []byte, strip map[string]struct{}) *lookup.Result {
	res := &lookup.Result{Number: number}

	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return res
	}

	for _, item := range collection(v) {
		rec := record(item, strip)
		if len(rec.Fields) > 0 {
			res.Records = append(res.Records, rec)
		}
	}
	return res
}

// collection unwraps the record container, whatever it is called.
func collection(v *fastjson.Value) []*fastjson.Value {
	switch v.Type() {
	case fastjson.TypeArray:
		return v.GetArray()
	case fastjson.TypeObject:
		for _, wrapper := range []string{"result", "results", "data", "records"} {
			inner := v.Get(wrapper)
			if inner == nil {
				continue
			}
			if inner.Type() == fastjson.TypeArray {
				return inner.GetArray()
			}
			if inner.Type() == fastjson.TypeObject {
				return []*fastjson.Value{inner}
			}
		}
		return []*fastjson.Value{v}
	default:
		return nil
	}
}

func record(v *fastjson.Value, strip map[string]struct{}) lookup.Record {
	var rec lookup.Record
	obj, err := v.Object()
	if err != nil {
		return rec
	}
	obj.Visit(func(key []byte, value *fastjson.Value) {
		k := string(key)
		if _, skip := strip[normalizeKey(k)]; skip {
			return
		}
		s := stringify(value)
		if s == "" {
			return
		}
		rec.Fields = append(rec.Fields, lookup.Field{Key: k, Value: s})
	})
	return rec
}

func stringify(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		return strings.TrimSpace(string(v.GetStringBytes()))
	case fastjson.TypeNull:
		return ""
	default:
		s := v.String()
		if s == "{}" || s == "[]" {
			return ""
		}
		return s
	}
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
