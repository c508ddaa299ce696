package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts aceitos ao ler timestamps gravados como texto (sqlite)
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST", // time.Time.String, default do modernc
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// dbTime lê TIMESTAMPTZ (lib/pq) ou TEXT/TIMESTAMP (sqlite) para time.Time
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case int64:
		t.Time, t.Valid = time.UnixMilli(v), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported time type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time, t.Valid = time.UnixMilli(ms), true
		return nil
	}
	return fmt.Errorf("parse time %q", s)
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// jsonColumn lê JSONB (bytes) ou TEXT para o destino informado
type jsonColumn struct{ dst any }

func (j jsonColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, j.dst)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nullIfEmpty grava NULL para string vazia (ex.: sportsbook de disbursement)
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime grava NULL para ponteiro nil
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
