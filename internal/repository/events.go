// Package repository keeps the fetch log in postgresql.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockedby/tgstats/internal/models"
)

const (
	DefaultEventsLimit = 50
	MaxEventsLimit     = 500
)

// EventFilter selects events for List.
type EventFilter struct {
	ChannelID int64
	Type      models.StatsEventType // empty = all types
	Since     time.Time             // zero = no lower bound
	Limit     int
}

// EventsRepository logs completed fetches. It doubles as a stats publisher,
// so every event the service announces is recorded. Only the envelope is
// kept; payloads are dropped.
type EventsRepository struct {
	pool *pgxpool.Pool
}

// NewEventsRepository creates a new EventsRepository.
func NewEventsRepository(pool *pgxpool.Pool) *EventsRepository {
	return &EventsRepository{pool: pool}
}

// Publish records event. A missing ID is generated.
func (r *EventsRepository) Publish(ctx context.Context, event models.StatsEvent) error {
	id, err := eventID(event.ID)
	if err != nil {
		return err
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO stats_events (id, type, channel_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, id, string(event.Type), event.ChannelID, at)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns the events of a channel, newest first.
func (r *EventsRepository) List(ctx context.Context, filter EventFilter) ([]models.StatsEvent, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StatsEvent, error) {
		var (
			e   models.StatsEvent
			id  uuid.UUID
			typ string
		)
		if err := row.Scan(&id, &typ, &e.ChannelID, &e.At); err != nil {
			return e, err
		}
		e.ID = id.String()
		e.Type = models.StatsEventType(typ)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than before and returns how many went.
func (r *EventsRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stats_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func buildListQuery(filter EventFilter) (string, []any) {
	query := `
		SELECT id, type, channel_id, created_at
		FROM stats_events
		WHERE channel_id = $1`
	args := []any{filter.ChannelID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return query, args
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultEventsLimit
	case limit > MaxEventsLimit:
		return MaxEventsLimit
	default:
		return limit
	}
}

func eventID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid event id %q: %w", raw, err)
	}
	return id, nil
}
