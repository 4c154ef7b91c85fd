package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a wrapper around gorm.io/datatypes.JSON to allow for custom data type mapping.
// It holds the opaque details payload of users and stations.
type JSON struct {
	datatypes.JSON
}

// NewJSON marshals an arbitrary details payload. A nil payload is stored as an empty string,
// a raw JSON message or byte slice is stored as is.
func NewJSON(details interface{}) (JSON, error) {
	switch v := details.(type) {
	case nil:
		return JSON{datatypes.JSON(`""`)}, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return JSON{}, fmt.Errorf("details are not valid JSON")
		}
		return JSON{datatypes.JSON(v)}, nil
	case JSON:
		return v, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return JSON{}, fmt.Errorf("failed to encode details: %w", err)
	}
	return JSON{datatypes.JSON(raw)}, nil
}

// Decode unmarshals the payload into a generic value
func (j JSON) Decode() interface{} {
	if len(j.JSON) == 0 {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal(j.JSON, &value); err != nil {
		return nil
	}
	return value
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
