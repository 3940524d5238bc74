// Package manifest keeps explicit metadata about every evaluation result
// file: its category, the model that produced it, and the flags of the run.
// Result discovery queries this metadata instead of pattern-matching file
// names.
package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "github.com/mattn/go-sqlite3"
)

// Result categories written by the evaluation driver.
const (
	CategoryAccuracies           = "accuracies"
	CategoryCorrelations         = "correlations"
	CategoryGridSearchBestParams = "grid_search_best_params"
	CategoryGridSearchResults    = "grid_search_results"
	CategorySimpleStatistics     = "simple_statistics"
)

var Categories = []string{
	CategoryAccuracies,
	CategoryCorrelations,
	CategoryGridSearchBestParams,
	CategoryGridSearchResults,
	CategorySimpleStatistics,
}

var ErrUnknownCategory = errors.New("unknown result category")

const (
	scopeFlavor = "flavor"
	scopePair   = "pair"
)

const schema = `
CREATE TABLE IF NOT EXISTS record (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL UNIQUE,
	category     TEXT NOT NULL,
	predictor    TEXT NOT NULL DEFAULT '',
	kernel       TEXT NOT NULL DEFAULT '',
	feature_type TEXT NULL
);
CREATE TABLE IF NOT EXISTS record_param (
	record_id INTEGER NOT NULL,
	scope     TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (record_id, scope, key)
);
CREATE INDEX IF NOT EXISTS record_category ON record (category, predictor, kernel);
`

// Record describes one result file.
type Record struct {
	ID          int64       `db:"id"`
	Path        string      `db:"path"`
	Category    string      `db:"category"`
	Predictor   string      `db:"predictor"`
	Kernel      string      `db:"kernel"`
	FeatureType null.String `db:"feature_type"`
	PairParams  Params      `db:"-"`
	Flavor      Params      `db:"-"`
}

// Query selects records. Empty strings, an invalid FeatureType and nil maps
// are wildcards. Flavor and PairParams match when they are subsets of the
// record's settings, where a record without FEATSCAL counts as unscaled.
type Query struct {
	Category    string
	Predictor   string
	Kernel      string
	FeatureType null.String
	PairParams  Params
	Flavor      Params
}

type paramRow struct {
	RecordID int64  `db:"record_id"`
	Scope    string `db:"scope"`
	Key      string `db:"key"`
	Value    string `db:"value"`
}

type Manifest struct {
	db *sqlx.DB
}

// Open connects to (and if needed creates) the SQLite manifest at path.
func Open(path string) (*Manifest, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &Manifest{db: db}, nil
}

func (m *Manifest) Close() error {
	return m.db.Close()
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}

	return false
}

// Add stores rec, replacing any record with the same path, and returns its ID.
func (m *Manifest) Add(rec Record) (int64, error) {
	if !ValidCategory(rec.Category) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, rec.Category)
	}
	if rec.Path == "" {
		return 0, fmt.Errorf("record has no path")
	}

	tx, err := m.db.Beginx()
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer tx.Rollback()

	var existing []int64
	if err := tx.Select(&existing, "SELECT id FROM record WHERE path = ?", rec.Path); err != nil {
		return 0, pfx.Err(err)
	}
	for _, id := range existing {
		if _, err := tx.Exec("DELETE FROM record_param WHERE record_id = ?", id); err != nil {
			return 0, pfx.Err(err)
		}
		if _, err := tx.Exec("DELETE FROM record WHERE id = ?", id); err != nil {
			return 0, pfx.Err(err)
		}
	}

	res, err := tx.NamedExec(`INSERT INTO record (path, category, predictor, kernel, feature_type)
		VALUES (:path, :category, :predictor, :kernel, :feature_type)`, &rec)
	if err != nil {
		return 0, pfx.Err(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, pfx.Err(err)
	}

	for scope, params := range map[string]Params{scopeFlavor: rec.Flavor, scopePair: rec.PairParams} {
		for _, k := range params.Keys() {
			if _, err := tx.Exec("INSERT INTO record_param (record_id, scope, key, value) VALUES (?, ?, ?, ?)", id, scope, k, params[k]); err != nil {
				return 0, pfx.Err(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, pfx.Err(err)
	}

	return id, nil
}

// All returns every record, ordered by path.
func (m *Manifest) All() ([]Record, error) {
	return m.Find(Query{})
}

// Find returns the records matching q, ordered by path.
func (m *Manifest) Find(q Query) ([]Record, error) {
	where := []string{}
	args := []interface{}{}

	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Predictor != "" {
		where = append(where, "predictor = ?")
		args = append(args, q.Predictor)
	}
	if q.Kernel != "" {
		where = append(where, "kernel = ?")
		args = append(args, q.Kernel)
	}
	if q.FeatureType.Valid {
		where = append(where, "feature_type = ?")
		args = append(args, q.FeatureType.String)
	}

	stmt := "SELECT id, path, category, predictor, kernel, feature_type FROM record"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY path"

	candidates := []Record{}
	if err := m.db.Select(&candidates, stmt, args...); err != nil {
		return nil, pfx.Err(err)
	}

	if err := m.attachParams(candidates); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(candidates))
	for _, rec := range candidates {
		if !rec.Flavor.WithDefaults().Contains(q.Flavor) {
			continue
		}
		if !rec.PairParams.Contains(q.PairParams) {
			continue
		}
		out = append(out, rec)
	}

	return out, nil
}

func (m *Manifest) attachParams(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	byID := make(map[int64]int, len(recs))
	ids := make([]int64, 0, len(recs))
	for i := range recs {
		recs[i].Flavor = Params{}
		recs[i].PairParams = Params{}
		byID[recs[i].ID] = i
		ids = append(ids, recs[i].ID)
	}

	query, args, err := sqlx.In("SELECT record_id, scope, key, value FROM record_param WHERE record_id IN (?)", ids)
	if err != nil {
		return pfx.Err(err)
	}

	rows := []paramRow{}
	if err := m.db.Select(&rows, m.db.Rebind(query), args...); err != nil {
		return pfx.Err(err)
	}

	for _, row := range rows {
		rec := &recs[byID[row.RecordID]]
		switch row.Scope {
		case scopeFlavor:
			rec.Flavor[row.Key] = row.Value
		case scopePair:
			rec.PairParams[row.Key] = row.Value
		}
	}

	return nil
}

// FlavorKeys returns the union of flavor keys across recs, sorted.
func FlavorKeys(recs []Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range recs {
		for k := range rec.Flavor {
			seen[k] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
