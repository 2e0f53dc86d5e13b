package nesimg

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/nesimg/quantize"
	_ "github.com/mattn/go-sqlite3"
)

// ExportDB records every conversion, keyed by the hash of the source file.
type ExportDB struct {
	db *sql.DB
}

// Export is a recorded conversion.
type Export struct {
	Hash          string
	Path          string
	Width, Height int
	Colors        [quantize.NumColors]uint8
	Tiles         []uint8
	CHR           []byte
	Score         float64
}

// NewExportDB opens, creating if necessary, the database at file.
func NewExportDB(file string) (*ExportDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS source (id INTEGER PRIMARY KEY NOT NULL, hash TEXT NOT NULL UNIQUE, path TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS export (id INTEGER PRIMARY KEY NOT NULL, source_id INTEGER NOT NULL UNIQUE, colors BLOB NOT NULL, tiles BLOB NOT NULL, chr BLOB NOT NULL, score REAL NOT NULL, FOREIGN KEY(source_id) REFERENCES source(id))"); err != nil {
		return nil, err
	}

	return &ExportDB{
		db: db,
	}, nil
}

// Close closes the database.
func (db *ExportDB) Close() error {
	return db.db.Close()
}

func (db *ExportDB) addSource(src *Source) (int64, error) {
	b := src.Image.Bounds()

	var id int64
	switch err := db.db.QueryRow("SELECT id FROM source WHERE hash = ?", src.Hash).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := db.db.Exec("INSERT INTO source (hash, path, width, height) VALUES (?, ?, ?, ?)", src.Hash, src.Path, b.Dx(), b.Dy())
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		// Same content may have moved
		if _, err := db.db.Exec("UPDATE source SET path = ?, width = ?, height = ? WHERE id = ?", src.Path, b.Dx(), b.Dy(), id); err != nil {
			return 0, err
		}
		return id, nil
	default:
		return 0, err
	}
}

// Add records the conversion r of src, replacing any earlier conversion of
// the same content.
func (db *ExportDB) Add(src *Source, r *quantize.Result, chr []byte) error {
	id, err := db.addSource(src)
	if err != nil {
		return err
	}

	colors := r.Colors()
	if _, err := db.db.Exec("INSERT OR REPLACE INTO export (source_id, colors, tiles, chr, score) VALUES (?, ?, ?, ?, ?)", id, colors[:], r.Tiles, chr, r.Score); err != nil {
		return err
	}
	return nil
}

type scanner interface {
	Scan(...interface{}) error
}

func scanExport(s scanner) (*Export, error) {
	var e Export
	var colors []byte
	if err := s.Scan(&e.Hash, &e.Path, &e.Width, &e.Height, &colors, &e.Tiles, &e.CHR, &e.Score); err != nil {
		return nil, err
	}
	if len(colors) != len(e.Colors) {
		return nil, fmt.Errorf("nesimg: export %s has %d colors", e.Hash, len(colors))
	}
	copy(e.Colors[:], colors)
	return &e, nil
}

const selectExport = "SELECT s.hash, s.path, s.width, s.height, e.colors, e.tiles, e.chr, e.score FROM export AS e JOIN source AS s ON e.source_id = s.id"

// FindByHash returns the conversion of the source with the given hash, or
// nil if there isn't one.
func (db *ExportDB) FindByHash(hash string) (*Export, error) {
	e, err := scanExport(db.db.QueryRow(selectExport+" WHERE s.hash = ?", hash))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return e, nil
	default:
		return nil, err
	}
}

// List returns every recorded conversion ordered by path.
func (db *ExportDB) List() ([]Export, error) {
	rows, err := db.db.Query(selectExport + " ORDER BY s.path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, *e)
	}
	return exports, rows.Err()
}
