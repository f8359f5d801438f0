package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account statuses.
const (
	AccountActive   = "active"
	AccountInactive = "inactive"
)

// Transaction types.
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
	TxTransfer   = "transfer"
	TxLoan       = "loan"
)

// Transaction statuses. Completed and rejected are terminal.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxRejected  = "rejected"
)

// Loan statuses. Approved and rejected are terminal.
const (
	LoanPending  = "pending"
	LoanApproved = "approved"
	LoanRejected = "rejected"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:50;not null"`
	Email    string `gorm:"uniqueIndex;size:255;not null"`
	Password string `gorm:"size:255" json:"-"`
	Role     string `gorm:"size:20;index;not null"`
}

type Account struct {
	gorm.Model
	UserID  uint64          `gorm:"index;not null"`
	Number  string          `gorm:"uniqueIndex;size:36;not null"`
	Balance decimal.Decimal `gorm:"not null"`
	Status  string          `gorm:"size:20;not null;default:active"`
}

// Transaction records a single balance movement request. A balance only ever
// changes together with a transition to completed, never for pending rows.
// For pending transfers, Description carries the destination account number
// as "To: <number>" until approval resolves it.
type Transaction struct {
	gorm.Model
	AccountID   uint64          `gorm:"index;not null"`
	Type        string          `gorm:"size:20;index;not null"` // deposit | withdrawal | transfer | loan
	Amount      decimal.Decimal `gorm:"not null"`
	Description string          `gorm:"size:255"`
	Status      string          `gorm:"size:20;index;not null"` // pending | completed | rejected
	ApprovedBy  *uint64
	RejectedBy  *uint64
}

type Loan struct {
	gorm.Model
	CustomerID uint64          `gorm:"index;not null"`
	AccountID  uint64          `gorm:"index;not null"`
	Amount     decimal.Decimal `gorm:"not null"`
	Status     string          `gorm:"size:20;index;not null"` // pending | approved | rejected
	ApprovedBy *uint64
	RejectedBy *uint64
}
