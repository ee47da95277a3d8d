package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrFieldMissing = errors.New("payload field missing")

// Payload 兼容两种载荷形态：
//
//	扁平:   {"idUsuario": 5, "username": "alice"}
//	嵌套:   {"members": {"idUsuario": {"value": 5}, "username": {"value": "alice"}}}
//
// 先按扁平取，取不到再走 members.<field>.value，都没有则报 ErrFieldMissing。
type Payload struct {
	flat    map[string]json.RawMessage
	members map[string]json.RawMessage
}

func ParsePayload(raw json.RawMessage) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p.flat); err != nil {
		return Payload{}, err
	}
	if m, ok := p.flat["members"]; ok {
		// members 不是对象时当作普通字段，忽略嵌套形态
		_ = json.Unmarshal(m, &p.members)
	}
	return p, nil
}

// Raw 返回字段的原始 JSON；null 视为缺失
func (p Payload) Raw(field string) (json.RawMessage, bool) {
	if v, ok := p.flat[field]; ok && !isNull(v) {
		return v, true
	}
	if v, ok := p.members[field]; ok {
		var wrapped struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(v, &wrapped); err == nil && len(wrapped.Value) > 0 && !isNull(wrapped.Value) {
			return wrapped.Value, true
		}
	}
	return nil, false
}

func (p Payload) Has(field string) bool {
	_, ok := p.Raw(field)
	return ok
}

// Int64 接受数字或数字字符串；5.0 这种整值小数也算
func (p Payload) Int64(field string) (int64, error) {
	v, ok := p.Raw(field)
	if !ok {
		return 0, ErrFieldMissing
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return wholeInt(n.String())
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, err
	}
	return wholeInt(strings.TrimSpace(s))
}

func wholeInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int64(f), nil
}

func (p Payload) OptInt64(field string) *int64 {
	n, err := p.Int64(field)
	if err != nil {
		return nil
	}
	return &n
}

// String 非字符串值按其 JSON 文本返回
func (p Payload) String(field string) (string, bool) {
	v, ok := p.Raw(field)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	return string(v), true
}

func (p Payload) StringOr(field, def string) string {
	if s, ok := p.String(field); ok {
		return s
	}
	return def
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}
