// Package records reads finish records from the relational store and appends
// new finishes to it.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/trackrank/internal/domain/model"
)

// Store runs the ranking queries over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	closers []func()
}

// New wraps an open database using dialect d.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database and any pool behind it.
func (s *Store) Close() error {
	err := s.db.Close()
	for _, c := range s.closers {
		c()
	}
	return err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// scopeSQL returns the join and filter narrowing records to scope's event.
func scopeSQL(scope model.Scope) (join, cond string, args []any) {
	if scope.Event == nil {
		return "", "", nil
	}
	return " INNER JOIN event_edition_records eer ON eer.record_id = r.record_id",
		" AND eer.event_id = ? AND eer.edition_id = ?",
		[]any{scope.Event.EventID, scope.Event.EditionID}
}

// CurrentBests returns the best time of every player in scope.
func (s *Store) CurrentBests(ctx context.Context, scope model.Scope) ([]model.Best, error) {
	join, cond, eargs := scopeSQL(scope)
	q := fmt.Sprintf(`SELECT r.record_player_id, %s(r.time)
		FROM records r%s
		WHERE r.map_id = ?%s
		GROUP BY r.record_player_id`, scope.Order.Aggregate(), join, cond)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), append([]any{scope.MapID}, eargs...)...)
	if err != nil {
		return nil, fmt.Errorf("current bests: %w", err)
	}
	defer rows.Close()

	var out []model.Best
	for rows.Next() {
		var b model.Best
		if err := rows.Scan(&b.PlayerID, &b.Time); err != nil {
			return nil, fmt.Errorf("current bests: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountPlayers returns the number of players with a record in scope.
func (s *Store) CountPlayers(ctx context.Context, scope model.Scope) (int64, error) {
	join, cond, eargs := scopeSQL(scope)
	q := fmt.Sprintf(`SELECT COUNT(DISTINCT r.record_player_id)
		FROM records r%s
		WHERE r.map_id = ?%s`, join, cond)

	var n int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), append([]any{scope.MapID}, eargs...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

// CurrentBest returns the best time of player in scope, if any.
func (s *Store) CurrentBest(ctx context.Context, scope model.Scope, player int64) (int32, bool, error) {
	join, cond, eargs := scopeSQL(scope)
	q := fmt.Sprintf(`SELECT %s(r.time)
		FROM records r%s
		WHERE r.map_id = ? AND r.record_player_id = ?%s`, scope.Order.Aggregate(), join, cond)

	var best sql.NullInt32
	args := append([]any{scope.MapID, player}, eargs...)
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), args...).Scan(&best); err != nil {
		return 0, false, fmt.Errorf("current best: %w", err)
	}
	return best.Int32, best.Valid, nil
}

// PlayerBests returns the best record of each player in scope joined with
// the player, best first. A non-nil ids restricts the players considered;
// an empty one yields no rows.
func (s *Store) PlayerBests(ctx context.Context, scope model.Scope, ids []int64) ([]model.PlayerRecord, error) {
	if ids != nil && len(ids) == 0 {
		return nil, nil
	}
	join, cond, eargs := scopeSQL(scope)

	args := []any{scope.MapID}
	in := ""
	if ids != nil {
		in = " AND r.record_player_id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	args = append(args, eargs...)
	args = append(args, scope.MapID)
	args = append(args, eargs...)

	// Ties on time go to whoever set that time first.
	q := fmt.Sprintf(`SELECT p.id, p.login, p.name, b.best
		FROM (SELECT r.record_player_id AS pid, %s(r.time) AS best
			FROM records r%s
			WHERE r.map_id = ?%s%s
			GROUP BY r.record_player_id) b
		INNER JOIN players p ON p.id = b.pid
		INNER JOIN records r ON r.record_player_id = b.pid AND r.map_id = ? AND r.time = b.best%s%s
		GROUP BY p.id, p.login, p.name, b.best
		ORDER BY b.best %s, MIN(r.record_date) ASC, p.id ASC`,
		scope.Order.Aggregate(), join, in, cond, join, cond, scope.Order.SQLDirection())

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("player bests: %w", err)
	}
	defer rows.Close()

	var out []model.PlayerRecord
	for rows.Next() {
		var r model.PlayerRecord
		if err := rows.Scan(&r.PlayerID, &r.Login, &r.Name, &r.Time); err != nil {
			return nil, fmt.Errorf("player bests: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Players returns the players with the given ids, in no particular order.
func (s *Store) Players(ctx context.Context, ids []int64) ([]model.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT id, login, name FROM players WHERE id IN (" + placeholders(len(ids)) + ")"

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("players: %w", err)
	}
	defer rows.Close()

	out := make([]model.Player, 0, len(ids))
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Login, &p.Name); err != nil {
			return nil, fmt.Errorf("players: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HaveMap returns the map with the given UID or a NotFoundError.
func (s *Store) HaveMap(ctx context.Context, uid string) (model.Map, error) {
	q := "SELECT id, game_id, name, cps_number, reversed, linked_map FROM maps WHERE game_id = ?"

	var (
		m      model.Map
		cps    sql.NullInt32
		linked sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), uid).Scan(&m.ID, &m.UID, &m.Name, &cps, &m.Reversed, &linked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Map{}, notFound("map", uid)
	}
	if err != nil {
		return model.Map{}, fmt.Errorf("have map: %w", err)
	}
	if cps.Valid {
		m.CpsNumber = &cps.Int32
	}
	if linked.Valid {
		m.LinkedMap = &linked.Int64
	}
	return m, nil
}

// HavePlayer returns the player with the given login or a NotFoundError.
func (s *Store) HavePlayer(ctx context.Context, login string) (model.Player, error) {
	q := "SELECT id, login, name FROM players WHERE login = ?"

	var p model.Player
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), login).Scan(&p.ID, &p.Login, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, notFound("player", login)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("have player: %w", err)
	}
	return p, nil
}

// HaveEventEdition returns an event edition or a NotFoundError.
func (s *Store) HaveEventEdition(ctx context.Context, handle string, edition int64) (model.Event, model.Edition, error) {
	q := `SELECT e.id, e.handle, ee.id, ee.name
		FROM event e
		INNER JOIN event_edition ee ON ee.event_id = e.id
		WHERE e.handle = ? AND ee.id = ?`

	var (
		ev model.Event
		ed model.Edition
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), handle, edition).Scan(&ev.ID, &ev.Handle, &ed.ID, &ed.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, model.Edition{}, notFound("event edition", fmt.Sprintf("%s/%d", handle, edition))
	}
	if err != nil {
		return model.Event{}, model.Edition{}, fmt.Errorf("have event edition: %w", err)
	}
	ed.EventID = ev.ID
	return ev, ed, nil
}

// InsertFinish appends a finish with its checkpoint times, and its event
// link when set, in one transaction.
func (s *Store) InsertFinish(ctx context.Context, f model.Finish) (recordID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert finish: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO records (record_player_id, map_id, time, respawn_count, record_date, flags)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING record_id`
	err = tx.QueryRowContext(ctx, s.dialect.rebind(q),
		f.PlayerID, f.MapID, f.Time, f.RespawnCount, f.Date.UTC(), int64(f.Flags)).Scan(&recordID)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	if len(f.Cps) > 0 {
		values := make([]string, 0, len(f.Cps))
		args := make([]any, 0, 4*len(f.Cps))
		for i, cp := range f.Cps {
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, i, f.MapID, recordID, cp)
		}
		q = "INSERT INTO checkpoint_times (cp_num, map_id, record_id, time) VALUES " + strings.Join(values, ", ")
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(q), args...); err != nil {
			return 0, fmt.Errorf("insert checkpoint times: %w", err)
		}
	}

	if f.Event != nil {
		q = "INSERT INTO event_edition_records (record_id, event_id, edition_id) VALUES (?, ?, ?)"
		if _, err = tx.ExecContext(ctx, s.dialect.rebind(q), recordID, f.Event.EventID, f.Event.EditionID); err != nil {
			return 0, fmt.Errorf("insert event record: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert finish: %w", err)
	}
	return recordID, nil
}
