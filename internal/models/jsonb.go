package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON decodes a jsonb column value into dst. NULL leaves dst untouched.
func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source %T", src)
	}
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// KeyMap maps a participant user id to the content key encapsulated for them.
type KeyMap map[string]string

func (k *KeyMap) Scan(src any) error { return scanJSON(src, (*map[string]string)(k)) }

func (k KeyMap) Value() (driver.Value, error) {
	if k == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]string(k))
}
