package records

import (
	"context"
	"fmt"

	"github.com/okian/trackrank/internal/domain/model"
)

// AddPlayer creates a player, or renames it when the login exists.
func (s *Store) AddPlayer(ctx context.Context, login, name string) (model.Player, error) {
	q := `INSERT INTO players (login, name) VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE SET name = excluded.name
		RETURNING id`
	p := model.Player{Login: login, Name: name}
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), login, name).Scan(&p.ID); err != nil {
		return model.Player{}, fmt.Errorf("add player: %w", err)
	}
	return p, nil
}

// AddMap creates a map keyed by its UID and returns it with its id set.
func (s *Store) AddMap(ctx context.Context, m model.Map) (model.Map, error) {
	q := `INSERT INTO maps (game_id, name, cps_number, reversed, linked_map)
		VALUES (?, ?, ?, ?, ?) RETURNING id`
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), m.UID, m.Name, m.CpsNumber, m.Reversed, m.LinkedMap).Scan(&m.ID)
	if err != nil {
		return model.Map{}, fmt.Errorf("add map %q: %w", m.UID, err)
	}
	return m, nil
}

// AddEventEdition creates an event when needed plus one of its editions.
func (s *Store) AddEventEdition(ctx context.Context, handle string, edition int64, name string) (model.Edition, error) {
	q := `INSERT INTO event (handle) VALUES (?)
		ON CONFLICT (handle) DO UPDATE SET handle = excluded.handle
		RETURNING id`
	var eventID int64
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(q), handle).Scan(&eventID); err != nil {
		return model.Edition{}, fmt.Errorf("add event %q: %w", handle, err)
	}

	q = "INSERT INTO event_edition (id, event_id, name) VALUES (?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, s.dialect.rebind(q), edition, eventID, name); err != nil {
		return model.Edition{}, fmt.Errorf("add edition %s/%d: %w", handle, edition, err)
	}
	return model.Edition{ID: edition, EventID: eventID, Name: name}, nil
}
