package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// canonicalJSON encodes body with object keys sorted and numbers in one
// spelling so that equal values always produce the same text. A nil body
// encodes as "null".
func canonicalJSON(body any) (string, error) {
	if body == nil {
		return "null", nil
	}

	var raw []byte
	switch b := body.(type) {
	case json.RawMessage:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return "", err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	out, err := json.Marshal(normalizeNumbers(v))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// maxExactFloat is the largest magnitude below which every integral float64
// is exact.
const maxExactFloat = 1 << 53

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	case json.Number:
		return normalizeNumber(t)
	}
	return v
}

// normalizeNumber spells 1, 1.0 and 1e0 the same way. Integers written
// without a fraction or exponent keep full precision.
func normalizeNumber(n json.Number) json.Number {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, ok := new(big.Int).SetString(s, 10); ok {
			return json.Number(i.String())
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return n
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// fingerprint identifies a call for coalescing.
func fingerprint(method, path, canonBody string) string {
	return method + ":" + path + ":" + canonBody
}

var errQueryShape = errors.New("GET body must be a JSON object")

// queryFromJSON flattens a canonical JSON object into query parameters.
// Nested values are sent as their JSON text; nulls are dropped.
func queryFromJSON(canon string) (url.Values, error) {
	obj := gjson.Parse(canon)
	if !obj.IsObject() {
		return nil, errQueryShape
	}
	q := url.Values{}
	obj.ForEach(func(k, v gjson.Result) bool {
		switch {
		case v.Type == gjson.Null:
		case v.IsObject(), v.IsArray():
			q.Set(k.String(), v.Raw)
		default:
			q.Set(k.String(), v.String())
		}
		return true
	})
	return q, nil
}
