package schema

import (
	"bytes"
	"encoding/json"

	"github.com/jacobparis/registry-registry/internal/model"
)

// Stored values have drifted through three encodings over time: the oldest
// records are plain JSON objects, newer ones are JSON strings holding the
// object, and a handful are bare arrays with no envelope at all. Decoding
// reconciles all three before validation sees the record. A value that fits
// none of them decodes to nil, nil so read paths degrade to "not found"
// instead of failing.

// DecodeTenant reconciles a raw stored value into a Tenant. The returned
// tenant has its registry normalized. Undecodable input yields (nil, nil).
func DecodeTenant(raw []byte) (*model.Tenant, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return nil, nil
	}

	switch body[0] {
	case '{':
		var t model.Tenant
		if err := json.Unmarshal(body, &t); err != nil {
			return nil, nil
		}
		t.Registry = NormalizeRegistry(t.Registry)
		return &t, nil
	case '"':
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, nil
		}
		return DecodeTenant([]byte(inner))
	case '[':
		var registry []model.Component
		if err := json.Unmarshal(body, &registry); err != nil {
			return nil, nil
		}
		return &model.Tenant{Registry: NormalizeRegistry(registry)}, nil
	default:
		return nil, nil
	}
}

// DecodeComponent reconciles a raw stored value into a Component, accepting
// both the direct object encoding and the JSON-string encoding. Undecodable
// input yields (nil, nil).
func DecodeComponent(raw []byte) (*model.Component, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return nil, nil
	}

	switch body[0] {
	case '{':
		var c model.Component
		if err := json.Unmarshal(body, &c); err != nil {
			return nil, nil
		}
		return &c, nil
	case '"':
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, nil
		}
		return DecodeComponent([]byte(inner))
	default:
		return nil, nil
	}
}
