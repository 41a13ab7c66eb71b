package database

import (
	"errors"
	"fmt"
	"maps"
)

// ErrSettingNotFound is returned by GetSetting for unknown keys.
var ErrSettingNotFound = errors.New("setting not found")

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// loadSettings fills the cache. Every write goes through SetSetting or
// ApplySettings, so the cache stays authoritative after this.
func (db *DB) loadSettings() error {
	rows, err := db.conn.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	loaded := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		loaded[key] = value
	}
	if err := rows.Err(); err != nil {
		return err
	}

	db.cacheMu.Lock()
	db.settings = loaded
	db.cacheMu.Unlock()
	return nil
}

// GetSetting implements ai.SettingsGetter.
func (db *DB) GetSetting(key string) (string, error) {
	db.cacheMu.RLock()
	defer db.cacheMu.RUnlock()
	v, ok := db.settings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return v, nil
}

func (db *DB) SetSetting(key, value string) error {
	if _, err := db.conn.Exec(upsertSetting, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	db.cacheMu.Lock()
	db.settings[key] = value
	db.cacheMu.Unlock()
	return nil
}

// ApplySettings stores every non-empty value in one transaction. Config
// and environment values go through here so they win over what is stored.
func (db *DB) ApplySettings(values map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	applied := make(map[string]string, len(values))
	for k, v := range values {
		if v == "" {
			continue
		}
		if _, err := tx.Exec(upsertSetting, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
		applied[k] = v
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	db.cacheMu.Lock()
	maps.Copy(db.settings, applied)
	db.cacheMu.Unlock()
	return nil
}

// Settings returns a copy of every stored setting.
func (db *DB) Settings() map[string]string {
	db.cacheMu.RLock()
	defer db.cacheMu.RUnlock()
	return maps.Clone(db.settings)
}
