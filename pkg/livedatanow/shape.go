package livedatanow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ErrUnexpectedShape marks an upstream body none of the declared adapters accept.
var ErrUnexpectedShape = errors.New("unexpected upstream response shape")

func unexpected(endpoint string, cause error) error {
	err := ErrUnexpectedShape
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrUnexpectedShape, cause)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnexpected, err, "unexpected response from "+endpoint)
}

type object map[string]json.RawMessage

func parseObject(raw []byte) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// present mirrors a loose truthiness check on a raw JSON member.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// decodeEntity accepts {"data": {...}} or a bare object.
func decodeEntity(endpoint string, body []byte, into any) error {
	obj, ok := parseObject(body)
	if !ok {
		return unexpected(endpoint, nil)
	}
	target := body
	if data, ok := obj["data"]; ok && present(data) {
		if _, isObj := parseObject(data); isObj {
			target = data
		}
	}
	if err := json.Unmarshal(target, into); err != nil {
		return unexpected(endpoint, err)
	}
	return nil
}

// decodeList accepts a bare array, {"data": [...]}, {"data": {"<field>": [...]}} or {"<field>": [...]}.
func decodeList(endpoint, field string, body []byte, into any) error {
	target, err := listPayload(body, field)
	if err != nil {
		return unexpected(endpoint, err)
	}
	if err := json.Unmarshal(target, into); err != nil {
		return unexpected(endpoint, err)
	}
	return nil
}

func listPayload(body []byte, field string) ([]byte, error) {
	if isArray(body) {
		return body, nil
	}
	obj, ok := parseObject(body)
	if !ok {
		return nil, errors.New("body is neither an array nor an object")
	}
	if data, ok := obj["data"]; ok && present(data) {
		if isArray(data) {
			return data, nil
		}
		if inner, ok := parseObject(data); ok {
			if list, ok := inner[field]; ok && isArray(list) {
				return list, nil
			}
		}
	}
	if list, ok := obj[field]; ok && isArray(list) {
		return list, nil
	}
	return nil, fmt.Errorf("no %q list found", field)
}

// firstString returns the first non-empty string among the dotted paths.
func firstString(obj object, paths ...[]string) string {
	for _, path := range paths {
		if v := stringAt(obj, path); v != "" {
			return v
		}
	}
	return ""
}

func stringAt(obj object, path []string) string {
	current := obj
	for i, key := range path {
		raw, ok := current[key]
		if !ok {
			return ""
		}
		if i == len(path)-1 {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return ""
			}
			return s
		}
		next, ok := parseObject(raw)
		if !ok {
			return ""
		}
		current = next
	}
	return ""
}

// firstObject returns the first member path that holds a JSON object.
func firstObject(obj object, paths ...[]string) json.RawMessage {
	for _, path := range paths {
		current := obj
		for i, key := range path {
			raw, ok := current[key]
			if !ok {
				break
			}
			next, ok := parseObject(raw)
			if !ok {
				break
			}
			if i == len(path)-1 {
				return raw
			}
			current = next
		}
	}
	return nil
}
