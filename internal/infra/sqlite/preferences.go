package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
)

const (
	keyAudio  = "audio"
	keyVolume = "volume"
	keyTheme  = "theme"
	keyAvatar = "avatar"
)

var themes = map[string]bool{"dark": true, "light": true}

// PreferencesStore keeps per-device settings as key/value rows in SQLite.
// Reads never fail: unreadable or invalid values fall back to defaults.
type PreferencesStore struct {
	conn *sql.DB
	log  zerolog.Logger
}

// NewPreferencesStore opens (or creates) the database at path and makes sure
// the table exists. ":memory:" gives a throwaway store.
func NewPreferencesStore(path string, log zerolog.Logger) (*PreferencesStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			device_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (device_id, key)
		)
	`); err != nil {
		db.Close()
		return nil, err
	}
	return &PreferencesStore{conn: db, log: log.With().Str("component", "preferences").Logger()}, nil
}

func (s *PreferencesStore) Close() error {
	return s.conn.Close()
}

// Load returns the stored preferences for deviceID merged over the defaults.
func (s *PreferencesStore) Load(ctx context.Context, deviceID string) domain.Preferences {
	prefs := domain.DefaultPreferences(deviceID)
	rows, err := s.conn.QueryContext(ctx, `SELECT key, value FROM preferences WHERE device_id = ?`, deviceID)
	if err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("preferences unreadable, using defaults")
		return prefs
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			s.log.Warn().Err(err).Str("device_id", deviceID).Msg("skipping unreadable preference")
			continue
		}
		if err := apply(&prefs, key, value); err != nil {
			s.log.Warn().Err(err).Str("device_id", deviceID).Str("key", key).Msg("ignoring invalid preference")
		}
	}
	if err := rows.Err(); err != nil {
		s.log.Warn().Err(err).Str("device_id", deviceID).Msg("preferences unreadable, using defaults")
		return domain.DefaultPreferences(deviceID)
	}
	return prefs
}

// Save writes every preference for prefs.DeviceID.
func (s *PreferencesStore) Save(ctx context.Context, prefs domain.Preferences) error {
	if prefs.DeviceID == "" {
		return fmt.Errorf("%w: empty device id", domain.ErrInvalidPreferences)
	}
	if err := Validate(prefs); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := map[string]string{
		keyAudio:  strconv.FormatBool(prefs.AudioEnabled),
		keyVolume: strconv.FormatFloat(prefs.Volume, 'f', -1, 64),
		keyTheme:  prefs.Theme,
		keyAvatar: prefs.Avatar,
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO preferences (device_id, key, value) VALUES (?, ?, ?)",
			prefs.DeviceID, key, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Validate rejects values Load would discard.
func Validate(prefs domain.Preferences) error {
	if prefs.Volume < 0 || prefs.Volume > 1 {
		return fmt.Errorf("%w: volume %v out of range [0,1]", domain.ErrInvalidPreferences, prefs.Volume)
	}
	if !themes[prefs.Theme] {
		return fmt.Errorf("%w: unknown theme %q", domain.ErrInvalidPreferences, prefs.Theme)
	}
	return nil
}

func apply(prefs *domain.Preferences, key, value string) error {
	switch key {
	case keyAudio:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		prefs.AudioEnabled = b
	case keyVolume:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("volume %v out of range", v)
		}
		prefs.Volume = v
	case keyTheme:
		if !themes[value] {
			return fmt.Errorf("unknown theme %q", value)
		}
		prefs.Theme = value
	case keyAvatar:
		prefs.Avatar = value
	}
	return nil
}
