package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cesargomez89/catalogd/internal/constants"
	"github.com/cesargomez89/catalogd/internal/domain"
)

// defaultSettings seeds the recognized keys on first startup. Descriptions
// are operator-facing; values are the string encoding typed coercion
// expects (see TypedValue).
var defaultSettings = []domain.Setting{
	{
		Key:         domain.SettingSchedulerSyncIntervalHours,
		Value:       strconv.Itoa(constants.DefaultSyncIntervalHours),
		Type:        domain.SettingTypeInt,
		Description: "Hours between automatic artist re-sync passes",
	},
	{
		Key:         domain.SettingSchedulerJobCleanupDays,
		Value:       strconv.Itoa(constants.DefaultJobCleanupDays),
		Type:        domain.SettingTypeInt,
		Description: "Age, in days, at which finished jobs are purged",
	},
	{
		Key:         domain.SettingSchedulerTokenCleanupDays,
		Value:       strconv.Itoa(constants.DefaultTokenCleanupDays),
		Type:        domain.SettingTypeInt,
		Description: "Age, in days, at which expired auth tokens are purged",
	},
	{
		Key:         domain.SettingAuthRegistrationEnabled,
		Value:       "true",
		Type:        domain.SettingTypeBool,
		Description: "Whether new user registration is accepted",
	},
	{
		Key:         domain.SettingDownloadMaxConcurrent,
		Value:       "3",
		Type:        domain.SettingTypeInt,
		Description: "Maximum number of concurrently executing download jobs",
	},
	{
		Key:         domain.SettingDownloadAudioQuality,
		Value:       "lossless",
		Type:        domain.SettingTypeString,
		Description: "Preferred audio quality tier requested from the catalog client",
	},
	{
		Key:         domain.SettingFeaturesLyricsEnabled,
		Value:       "true",
		Type:        domain.SettingTypeBool,
		Description: "Whether download_lyrics jobs are scheduled at all",
	},
	{
		Key:         domain.SettingFeaturesChartsEnabled,
		Value:       "false",
		Type:        domain.SettingTypeBool,
		Description: "Whether chart-derived discovery features are exposed",
	},
}

// seedDefaultSettings inserts defaultSettings, skipping any key already
// present so an operator's prior edits survive a restart.
func seedDefaultSettings(tx dbOps) error {
	for _, s := range defaultSettings {
		_, err := tx.Exec(`
			INSERT INTO settings (key, value, type, description, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, s.Key, s.Value, s.Type, s.Description, time.Now())
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", s.Key, err)
		}
	}
	return nil
}

// GetSetting fetches the row for key, or (nil, nil) if it has never been
// set (neither seeded nor written).
func (db *DB) GetSetting(key string) (*domain.Setting, error) {
	var s domain.Setting
	err := db.Get(&s, "SELECT key, value, type, description, updated_at FROM settings WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSettings returns every row, ordered by key.
func (db *DB) ListSettings() ([]domain.Setting, error) {
	var out []domain.Setting
	err := db.Select(&out, "SELECT key, value, type, description, updated_at FROM settings ORDER BY key")
	return out, err
}

// SetSetting writes value under key, coercing it to typ's string encoding
// first (mirroring TypedValue's decoding).
func (db *DB) SetSetting(key string, typ domain.SettingType, value interface{}) error {
	encoded, err := encodeSettingValue(typ, value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}

	_, err = db.Exec(`
		INSERT INTO settings (key, value, type, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, type = excluded.type, updated_at = excluded.updated_at
	`, key, encoded, typ, time.Now())
	return err
}

// encodeSettingValue renders value as the string Setting.Value stores,
// per typ.
func encodeSettingValue(typ domain.SettingType, value interface{}) (string, error) {
	switch typ {
	case domain.SettingTypeString:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", value)
		}
		return s, nil
	case domain.SettingTypeInt:
		switch v := value.(type) {
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		default:
			return "", fmt.Errorf("expected int, got %T", value)
		}
	case domain.SettingTypeBool:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", value)
		}
		return strconv.FormatBool(b), nil
	case domain.SettingTypeJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unrecognized setting type %q", typ)
	}
}

// TypedValue decodes s.Value according to s.Type, returning a string,
// int64, bool, or an unmarshaled interface{} for json.
func TypedValue(s domain.Setting) (interface{}, error) {
	switch s.Type {
	case domain.SettingTypeString, "":
		return s.Value, nil
	case domain.SettingTypeInt:
		return strconv.ParseInt(s.Value, 10, 64)
	case domain.SettingTypeBool:
		return strconv.ParseBool(s.Value)
	case domain.SettingTypeJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unrecognized setting type %q", s.Type)
	}
}

// IntSetting reads a single int-typed setting, falling back to fallback
// when the key is unset or unparsable.
func (db *DB) IntSetting(key string, fallback int) int {
	s, err := db.GetSetting(key)
	if err != nil || s == nil {
		return fallback
	}
	v, err := TypedValue(*s)
	if err != nil {
		return fallback
	}
	n, ok := v.(int64)
	if !ok {
		return fallback
	}
	return int(n)
}

// BoolSetting mirrors IntSetting for bool-typed settings.
func (db *DB) BoolSetting(key string, fallback bool) bool {
	s, err := db.GetSetting(key)
	if err != nil || s == nil {
		return fallback
	}
	v, err := TypedValue(*s)
	if err != nil {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// StringSetting mirrors IntSetting for string-typed settings.
func (db *DB) StringSetting(key string, fallback string) string {
	s, err := db.GetSetting(key)
	if err != nil || s == nil {
		return fallback
	}
	return s.Value
}
