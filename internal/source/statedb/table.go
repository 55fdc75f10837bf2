package statedb

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hollis/convoview/internal/discover"
)

// sqlitePoolSettings keeps the FD footprint minimal for read-only access:
// one connection, no idle pool, short lifetime.
func sqlitePoolSettings(db *sql.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(time.Second)
}

func openStateDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	sqlitePoolSettings(db)
	return db, nil
}

// sqlTable adapts a workspace state database's ItemTable to the
// discover.Table read surface.
type sqlTable struct {
	db *sql.DB
}

func (t *sqlTable) KeysLike(patterns []string) ([]string, error) {
	var keys []string
	for _, p := range patterns {
		rows, err := t.db.Query(
			`SELECT key FROM ItemTable WHERE key LIKE '%' || ? || '%' ORDER BY key`, p)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, err
			}
			keys = append(keys, k)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (t *sqlTable) Value(key string) (string, bool, error) {
	var v string
	err := t.db.QueryRow(`SELECT value FROM ItemTable WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (t *sqlTable) Largest(n int) ([]discover.Entry, error) {
	rows, err := t.db.Query(
		`SELECT key, value FROM ItemTable ORDER BY LENGTH(value) DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []discover.Entry
	for rows.Next() {
		var e discover.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
