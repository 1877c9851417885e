package repository // repository defines data access for rooms and ticket types

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinema-ticketing/internal/model" // Room, TicketType
)

// RoomRepo provides data access to rooms.
type RoomRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// GetByIDForUpdate returns and locks the room.
func (r *RoomRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	var rm model.Room
	err := pick(ctx, r.db).QueryRowContext(ctx, `SELECT id, cinema_id, name FROM rooms WHERE id = ? FOR UPDATE`, id).
		Scan(&rm.ID, &rm.CinemaID, &rm.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &rm, nil
}

// Delete removes the room.  Its seats cascade.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := pick(ctx, r.db).ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// TicketTypeRepo provides read access to ticket price classes.
type TicketTypeRepo struct {
	db *sql.DB // pool used when ctx carries no transaction
}

// NewTicketTypeRepo returns a TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// GetByIDs returns the ticket types that exist among ids.
func (r *TicketTypeRepo) GetByIDs(ctx context.Context, ids []uint64) ([]model.TicketType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := pick(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, price FROM ticket_types WHERE id IN (`+inClause(len(ids))+`) ORDER BY id`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TicketType
	for rows.Next() {
		var t model.TicketType
		if err := rows.Scan(&t.ID, &t.Name, &t.Price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
