// Package store persists session runs in SQLite: the sessions, their
// nominated regions, and every per-frame observation, so runs can be
// inspected and reported on after the fact.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	*sql.DB
}

// Open opens (or creates) the database at path and brings its schema up
// to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SessionRecord is one tracking run. Timestamps are in the database's
// own format; FinishedAt and Error are empty while absent.
type SessionRecord struct {
	SessionID      string `json:"session_id"`
	Mode           string `json:"mode"`
	Precision      string `json:"precision"`
	State          string `json:"state"`
	FrameCount     int    `json:"frame_count"`
	TrackingFailed bool   `json:"tracking_failed"`
	Error          string `json:"error,omitempty"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
}

// RegionRecord is one nominated region of a session.
type RegionRecord struct {
	SessionID       string `json:"session_id"`
	RegionID        string `json:"region_id"`
	NominationIndex int    `json:"nomination_index"`
	Color           string `json:"color"`
}

// ObservationRecord is one region result on one frame. The geometry is
// the observed quad's bounding rectangle in normalized coordinates.
type ObservationRecord struct {
	SessionID  string  `json:"session_id"`
	RegionID   string  `json:"region_id"`
	FrameIndex int     `json:"frame_index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
	Style      string  `json:"style"`
	RecordedAt string  `json:"recorded_at"`
}

// CreateSession inserts a session row together with its regions.
func (s *Store) CreateSession(rec SessionRecord, regions []RegionRecord) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, mode, precision_level, state, frame_count, tracking_failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Mode, rec.Precision, rec.State, rec.FrameCount, boolToInt(rec.TrackingFailed),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	for _, r := range regions {
		_, err = tx.Exec(
			`INSERT INTO regions (session_id, region_id, nomination_index, color)
			 VALUES (?, ?, ?, ?)`,
			rec.SessionID, r.RegionID, r.NominationIndex, r.Color,
		)
		if err != nil {
			return fmt.Errorf("insert region %s: %w", r.RegionID, err)
		}
	}
	return tx.Commit()
}

// FinishSession records a session's terminal state.
func (s *Store) FinishSession(sessionID, state string, frameCount int, trackingFailed bool, errMsg string) error {
	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	_, err := s.Exec(
		`UPDATE sessions
		 SET state = ?, frame_count = ?, tracking_failed = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE session_id = ?`,
		state, frameCount, boolToInt(trackingFailed), errVal, sessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// RecordObservations inserts a batch of observations in one
// transaction.
func (s *Store) RecordObservations(recs []ObservationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO observations (session_id, region_id, frame_index, x, y, w, h, confidence, style)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range recs {
		if _, err := stmt.Exec(r.SessionID, r.RegionID, r.FrameIndex, r.X, r.Y, r.W, r.H, r.Confidence, r.Style); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}
	return tx.Commit()
}

// Sessions lists the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Query(
		`SELECT session_id, mode, precision_level, state, frame_count, tracking_failed, error, started_at, finished_at
		 FROM sessions ORDER BY started_at DESC, session_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Session returns one session by id, or sql.ErrNoRows.
func (s *Store) Session(sessionID string) (SessionRecord, error) {
	row := s.QueryRow(
		`SELECT session_id, mode, precision_level, state, frame_count, tracking_failed, error, started_at, finished_at
		 FROM sessions WHERE session_id = ?`, sessionID)
	return scanSession(row)
}

// SessionRegions returns a session's regions in nomination order.
func (s *Store) SessionRegions(sessionID string) ([]RegionRecord, error) {
	rows, err := s.Query(
		`SELECT session_id, region_id, nomination_index, color
		 FROM regions WHERE session_id = ? ORDER BY nomination_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RegionRecord
	for rows.Next() {
		var r RegionRecord
		if err := rows.Scan(&r.SessionID, &r.RegionID, &r.NominationIndex, &r.Color); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Observations returns a session's observations ordered by frame, then
// by region.
func (s *Store) Observations(sessionID string) ([]ObservationRecord, error) {
	rows, err := s.Query(
		`SELECT session_id, region_id, frame_index, x, y, w, h, confidence, style, recorded_at
		 FROM observations WHERE session_id = ? ORDER BY frame_index, region_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ObservationRecord
	for rows.Next() {
		var r ObservationRecord
		if err := rows.Scan(&r.SessionID, &r.RegionID, &r.FrameIndex, &r.X, &r.Y, &r.W, &r.H, &r.Confidence, &r.Style, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneObservations deletes observations older than ttl, then removes
// finished sessions that no longer have any. It returns the number of
// observations removed.
func (s *Store) PruneObservations(ttl time.Duration) (int64, error) {
	modifier := fmt.Sprintf("-%d seconds", int64(ttl.Seconds()))
	res, err := s.Exec(`DELETE FROM observations WHERE recorded_at < datetime('now', ?)`, modifier)
	if err != nil {
		return 0, fmt.Errorf("prune observations: %w", err)
	}
	n, _ := res.RowsAffected()

	_, err = s.Exec(
		`DELETE FROM regions WHERE session_id IN (
			SELECT session_id FROM sessions
			WHERE finished_at IS NOT NULL
			  AND session_id NOT IN (SELECT DISTINCT session_id FROM observations)
		)`)
	if err != nil {
		return n, fmt.Errorf("prune regions: %w", err)
	}
	_, err = s.Exec(
		`DELETE FROM sessions
		 WHERE finished_at IS NOT NULL
		   AND session_id NOT IN (SELECT DISTINCT session_id FROM observations)`)
	if err != nil {
		return n, fmt.Errorf("prune sessions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var failed int
	var errMsg, finishedAt sql.NullString
	err := row.Scan(
		&rec.SessionID, &rec.Mode, &rec.Precision, &rec.State,
		&rec.FrameCount, &failed, &errMsg, &rec.StartedAt, &finishedAt,
	)
	if err != nil {
		return SessionRecord{}, err
	}
	rec.TrackingFailed = failed != 0
	rec.Error = errMsg.String
	rec.FinishedAt = finishedAt.String
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
