package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a row does not exist, or was already moved out
// of the state the caller expected by a concurrent operation.
var ErrNotFound = errors.New("not found")

// Ledger is the typed repository over accounts, transactions, and loans.
// A Ledger obtained from Atomically runs every call inside that database
// transaction; the *ForUpdate variants additionally take a row lock so that
// concurrent approvals serialize on the same row.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Atomically runs fn in a single database transaction. Any error returned by
// fn rolls the whole unit back; balance mutations and status transitions are
// never observable separately.
func (l *Ledger) Atomically(ctx context.Context, fn func(tx *Ledger) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Ledger{db: tx})
	})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// forUpdate adds a FOR UPDATE row lock. SQLite (used in tests) has a single
// writer and no FOR UPDATE syntax, so the clause is skipped there.
func (l *Ledger) forUpdate() *gorm.DB {
	if l.db.Dialector.Name() == "sqlite" {
		return l.db
	}
	return l.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// -- accounts --

func (l *Ledger) GetAccount(id uint64) (*models.Account, error) {
	var a models.Account
	if err := l.db.First(&a, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

func (l *Ledger) GetAccountForUpdate(id uint64) (*models.Account, error) {
	var a models.Account
	if err := l.forUpdate().First(&a, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

func (l *Ledger) FindAccountByNumber(number string) (*models.Account, error) {
	var a models.Account
	if err := l.db.Where("number = ?", number).First(&a).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

func (l *Ledger) CreateAccount(a *models.Account) error {
	return l.db.Create(a).Error
}

// UpdateBalance applies delta to the account's balance. Callers hold the row
// lock (GetAccountForUpdate) before calling this inside an atomic unit.
func (l *Ledger) UpdateBalance(id uint64, delta decimal.Decimal) error {
	res := l.db.Model(&models.Account{}).Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *Ledger) AccountsForUser(userID uint64) ([]models.Account, error) {
	var accounts []models.Account
	if err := l.db.Where("user_id = ?", userID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// -- transactions --

func (l *Ledger) GetTransaction(id uint64) (*models.Transaction, error) {
	var t models.Transaction
	if err := l.db.First(&t, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &t, nil
}

func (l *Ledger) GetTransactionForUpdate(id uint64) (*models.Transaction, error) {
	var t models.Transaction
	if err := l.forUpdate().First(&t, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &t, nil
}

func (l *Ledger) InsertTransaction(t *models.Transaction) error {
	return l.db.Create(t).Error
}

// UpdateTransactionStatus moves a pending transaction into a terminal state
// and records the acting staff member. The WHERE status = pending guard is
// what makes a lost double-approval race observable as ErrNotFound instead of
// a second application.
func (l *Ledger) UpdateTransactionStatus(id uint64, status string, actorID uint64) error {
	updates := map[string]any{"status": status}
	switch status {
	case models.TxCompleted:
		updates["approved_by"] = actorID
	case models.TxRejected:
		updates["rejected_by"] = actorID
	default:
		return fmt.Errorf("status %q is not terminal", status)
	}
	res := l.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TxPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *Ledger) TransactionsForAccount(accountID uint64) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := l.db.Where("account_id = ?", accountID).
		Order("created_at DESC").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (l *Ledger) PendingTransactions() ([]models.Transaction, error) {
	var txs []models.Transaction
	err := l.db.Where("status = ?", models.TxPending).
		Order("created_at ASC").Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// SumCompletedDeposits totals every completed deposit in the ledger. Together
// with SumApprovedLoans it yields the deposit base that caps employee loan
// approvals.
func (l *Ledger) SumCompletedDeposits() (decimal.Decimal, error) {
	return l.sumAmount(&models.Transaction{},
		"type = ? AND status = ?", models.TxDeposit, models.TxCompleted)
}

func (l *Ledger) SumApprovedLoans() (decimal.Decimal, error) {
	return l.sumAmount(&models.Loan{}, "status = ?", models.LoanApproved)
}

func (l *Ledger) sumAmount(model any, query string, args ...any) (decimal.Decimal, error) {
	row := l.db.Model(model).Where(query, args...).
		Select("SUM(amount)").Row()
	var sum decimal.NullDecimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// -- loans --

func (l *Ledger) GetLoan(id uint64) (*models.Loan, error) {
	var loan models.Loan
	if err := l.db.First(&loan, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &loan, nil
}

func (l *Ledger) GetLoanForUpdate(id uint64) (*models.Loan, error) {
	var loan models.Loan
	if err := l.forUpdate().First(&loan, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &loan, nil
}

func (l *Ledger) InsertLoan(loan *models.Loan) error {
	return l.db.Create(loan).Error
}

// UpdateLoanStatus carries the same pending-only guard as
// UpdateTransactionStatus, for the same reason.
func (l *Ledger) UpdateLoanStatus(id uint64, status string, actorID uint64) error {
	updates := map[string]any{"status": status}
	switch status {
	case models.LoanApproved:
		updates["approved_by"] = actorID
	case models.LoanRejected:
		updates["rejected_by"] = actorID
	default:
		return fmt.Errorf("status %q is not terminal", status)
	}
	res := l.db.Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, models.LoanPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *Ledger) CountActiveLoansForCustomer(customerID uint64) (int64, error) {
	var count int64
	err := l.db.Model(&models.Loan{}).
		Where("customer_id = ? AND status = ?", customerID, models.LoanApproved).
		Count(&count).Error
	return count, err
}

func (l *Ledger) LoansForCustomer(customerID uint64) ([]models.Loan, error) {
	var loans []models.Loan
	err := l.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

func (l *Ledger) PendingLoans() ([]models.Loan, error) {
	var loans []models.Loan
	err := l.db.Where("status = ?", models.LoanPending).
		Order("created_at ASC").Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// -- users --

func (l *Ledger) GetUser(id uint64) (*models.User, error) {
	var u models.User
	if err := l.db.First(&u, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (l *Ledger) FindUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := l.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}
