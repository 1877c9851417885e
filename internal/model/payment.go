package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values stored in payments.status.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment methods accepted by reservations.
const (
	MethodCreditCard   = "credit_card"
	MethodDebitCard    = "debit_card"
	MethodBankTransfer = "bank_transfer"
	MethodEWallet      = "e_wallet"
	MethodCash         = "cash"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodEWallet, MethodCash:
		return true
	}
	return false
}

// ValidSettlementOutcome reports whether s is a terminal payment status.
func ValidSettlementOutcome(s string) bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment tracks the money side of a booking.  SeatIDs and Tickets are a
// snapshot taken at reservation time so the payment stays meaningful when
// the booking row is gone.
//
// Fields:
//  ID            – primary key identifier.
//  BookingID     – linked booking (nullable; cleared when the booking is deleted).
//  UserID        – paying user.
//  ShowtimeID    – showtime paid for.
//  SeatIDs       – seat snapshot.
//  Tickets       – ticket snapshot.
//  TotalAmount   – amount charged.
//  PaymentMethod – one of the Method* constants.
//  Status        – pending, completed, failed or refunded.
//  TransactionID – set when the payment completes.
//  PaymentDate   – creation timestamp.
//  RefundDate    – set on refund.
//  RefundReason  – set on refund.
type Payment struct {
	ID            uint64          `json:"id"`                      // payments.id
	BookingID     *uint64         `json:"booking_id"`              // payments.booking_id (nullable)
	UserID        uint64          `json:"user_id"`                 // payments.user_id
	ShowtimeID    uint64          `json:"showtime_id"`             // payments.showtime_id
	SeatIDs       []uint64        `json:"seat_ids"`                // payments.seats (JSON)
	Tickets       []TicketLine    `json:"tickets"`                 // payments.tickets (JSON)
	TotalAmount   decimal.Decimal `json:"total_amount"`            // payments.total_amount
	PaymentMethod string          `json:"payment_method"`          // payments.payment_method
	Status        string          `json:"status"`                  // payments.status
	TransactionID *string         `json:"transaction_id"`          // payments.transaction_id (nullable)
	PaymentDate   time.Time       `json:"payment_date"`            // payments.payment_date
	RefundDate    *time.Time      `json:"refund_date,omitempty"`   // payments.refund_date (nullable)
	RefundReason  *string         `json:"refund_reason,omitempty"` // payments.refund_reason (nullable)
}
