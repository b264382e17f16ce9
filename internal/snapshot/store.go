package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/sources"
)

// Store implements sources.Store on the snapshot database with a lazy
// per-process row cache. The cache is read-through: a scope's rows are
// loaded from SQLite once and swapped wholesale on Replace.
type Store struct {
	db     *DB
	logger *logging.Logger

	mu    sync.RWMutex
	cache map[sources.SnapshotKey]dataset.Rows
}

// NewStore wraps an open snapshot database
func NewStore(db *DB, logger *logging.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		cache:  map[sources.SnapshotKey]dataset.Rows{},
	}
}

// CoveredDates returns the record-dates the manifest claims for a scope.
// Databases written before the manifest existed fall back to deriving the
// set from the stored rows.
func (s *Store) CoveredDates(ctx context.Context, key sources.SnapshotKey) (*dataset.DateSet, error) {
	covered, err := s.queryDates(ctx,
		"SELECT record_date FROM manifest WHERE source_id = ? AND jurisdiction = ? AND level = ?",
		key)
	if err != nil {
		return nil, err
	}
	if covered.Len() > 0 {
		return covered, nil
	}
	return s.queryDates(ctx,
		"SELECT DISTINCT election_date FROM results WHERE source_id = ? AND jurisdiction = ? AND level = ?",
		key)
}

func (s *Store) queryDates(ctx context.Context, query string, key sources.SnapshotKey) (*dataset.DateSet, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, string(key.Source), key.Jurisdiction, string(key.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to query covered dates: %w", err)
	}
	defer rows.Close()

	out := dataset.NewDateSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := dataset.ParseDate(raw)
		if err != nil {
			return nil, dberrors.New(
				dberrors.SnapshotMissingColumn,
				fmt.Sprintf("snapshot for %s/%s/%s holds an unusable record date %q", key.Source, key.Jurisdiction, key.Level, raw),
				err,
			)
		}
		out.Add(d)
	}
	return out, rows.Err()
}

// Load returns the cached rows for a scope, reading from SQLite on first
// access. The returned slice is shared; callers must treat it as
// read-only.
func (s *Store) Load(ctx context.Context, key sources.SnapshotKey) (dataset.Rows, error) {
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	loaded, err := s.loadRows(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = loaded
	s.mu.Unlock()
	return loaded, nil
}

func (s *Store) loadRows(ctx context.Context, key sources.SnapshotKey) (dataset.Rows, error) {
	query := `
	SELECT state, year, election_date, election_type, office, office_raw,
	       row_jurisdiction, jurisdiction_type, district, candidate, party,
	       votes, vote_share, won, incumbent, source_url, retrieved_at, fetch_id
	FROM results
	WHERE source_id = ? AND jurisdiction = ? AND level = ?
	ORDER BY election_date, id`

	rows, err := s.db.conn.QueryContext(ctx, query, string(key.Source), key.Jurisdiction, string(key.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot rows: %w", err)
	}
	defer rows.Close()

	var out dataset.Rows
	for rows.Next() {
		var r dataset.Row
		var rawDate string
		var won, incumbent int
		if err := rows.Scan(
			&r.State, &r.Year, &rawDate, &r.ElectionType, &r.Office, &r.OfficeRaw,
			&r.Jurisdiction, &r.JurisdictionType, &r.District, &r.Candidate, &r.Party,
			&r.Votes, &r.VoteShare, &won, &incumbent, &r.SourceURL, &r.RetrievedAt, &r.FetchID,
		); err != nil {
			return nil, err
		}
		d, err := dataset.ParseDate(rawDate)
		if err != nil {
			return nil, dberrors.New(
				dberrors.SnapshotMissingColumn,
				fmt.Sprintf("snapshot for %s/%s/%s holds a row without a usable election_date", key.Source, key.Jurisdiction, key.Level),
				err,
			)
		}
		r.ElectionDate = d
		r.Won = won != 0
		r.Incumbent = incumbent != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace atomically swaps in a new row set for a scope and rebuilds its
// manifest from the rows' record-dates. The cache entry is swapped only
// after the transaction commits.
func (s *Store) Replace(ctx context.Context, key sources.SnapshotKey, newRows dataset.Rows) error {
	for i := range newRows {
		if newRows[i].ElectionDate.IsZero() {
			return dberrors.New(
				dberrors.SnapshotMissingColumn,
				fmt.Sprintf("refusing to persist a row without an election_date (candidate %q)", newRows[i].Candidate),
				nil,
			)
		}
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		for _, del := range []string{
			"DELETE FROM results WHERE source_id = ? AND jurisdiction = ? AND level = ?",
			"DELETE FROM manifest WHERE source_id = ? AND jurisdiction = ? AND level = ?",
		} {
			if _, err := tx.ExecContext(ctx, del, string(key.Source), key.Jurisdiction, string(key.Level)); err != nil {
				return fmt.Errorf("failed to clear snapshot scope: %w", err)
			}
		}

		insert, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			source_id, jurisdiction, level, row_hash,
			state, year, election_date, election_type, office, office_raw,
			row_jurisdiction, jurisdiction_type, district, candidate, party,
			votes, vote_share, won, incumbent, source_url, retrieved_at, fetch_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()

		manifestURL := map[string]string{}
		for i := range newRows {
			r := &newRows[i]
			if _, err := insert.ExecContext(ctx,
				string(key.Source), key.Jurisdiction, string(key.Level), r.Hash(),
				r.State, r.Year, r.ElectionDate.String(), r.ElectionType, r.Office, r.OfficeRaw,
				r.Jurisdiction, r.JurisdictionType, r.District, r.Candidate, r.Party,
				r.Votes, r.VoteShare, boolInt(r.Won), boolInt(r.Incumbent),
				r.SourceURL, r.RetrievedAt, r.FetchID,
			); err != nil {
				return fmt.Errorf("failed to insert result row: %w", err)
			}
			date := r.ElectionDate.String()
			if _, seen := manifestURL[date]; !seen {
				manifestURL[date] = r.SourceURL
			}
		}

		for date, url := range manifestURL {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO manifest (source_id, jurisdiction, level, record_date, source_url) VALUES (?, ?, ?, ?, ?)",
				string(key.Source), key.Jurisdiction, string(key.Level), date, url,
			); err != nil {
				return fmt.Errorf("failed to write manifest entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[key] = newRows
	s.mu.Unlock()

	s.logger.Debug("Snapshot replaced", map[string]interface{}{
		"source":       key.Source,
		"jurisdiction": key.Jurisdiction,
		"level":        key.Level,
		"rows":         len(newRows),
	})
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
