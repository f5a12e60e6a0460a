package vectorstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// sqliteBacking persists the index as a plain table: rowid keyed by
// pattern_id, embedding stored as a little-endian float32 blob,
// metadata as JSON. This is a deliberately simpler adaptation of
// theRebelliousNerd-codenerd's vec0-compat virtual table
// (internal/store/vec_compat.go): that file reimplements a full SQLite
// virtual table module to expose a vec0-shaped interface, but its
// Cursor.Next/Column machinery still does a plain full-table scan
// underneath - there is no real ANN structure being skipped here, only
// the vtab plumbing, which this store doesn't need because it talks to
// its own schema directly (see DESIGN.md).
type sqliteBacking struct {
	db *sql.DB
}

func openSQLiteBacking(path string) (*sqliteBacking, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS pattern_entries (
	pattern_id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &sqliteBacking{db: db}, nil
}

func (b *sqliteBacking) close() error {
	return b.db.Close()
}

func (b *sqliteBacking) loadAll() ([]indexedEntry, error) {
	rows, err := b.db.Query(`SELECT pattern_id, text, metadata, embedding FROM pattern_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []indexedEntry
	for rows.Next() {
		var patternID, text, metaJSON string
		var embBlob []byte
		if err := rows.Scan(&patternID, &text, &metaJSON, &embBlob); err != nil {
			return nil, err
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", patternID, err)
		}
		out = append(out, indexedEntry{
			Entry:     Entry{PatternID: patternID, Text: text, Metadata: meta},
			Embedding: decodeFloat32Blob(embBlob),
		})
	}
	return out, rows.Err()
}

func (b *sqliteBacking) replaceAll(entries []indexedEntry) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM pattern_entries`); err != nil {
		tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pattern_entries (pattern_id, text, metadata, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		metaJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(e.PatternID, e.Text, string(metaJSON), encodeFloat32Blob(e.Embedding)); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func encodeFloat32Blob(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeFloat32Blob(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
