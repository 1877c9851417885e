package model

import "github.com/shopspring/decimal"

// Room is a screening room inside a cinema.
type Room struct {
	ID       uint64 // rooms.id
	CinemaID uint64 // rooms.cinema_id
	Name     string // rooms.name
}

// TicketType is a price class such as adult or student.
type TicketType struct {
	ID    uint64          `json:"id"`    // ticket_types.id
	Name  string          `json:"name"`  // ticket_types.name
	Price decimal.Decimal `json:"price"` // ticket_types.price
}
