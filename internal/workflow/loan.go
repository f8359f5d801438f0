package workflow

import (
	"context"
	"errors"

	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanWorkflow struct {
	ledger *store.Ledger
	engine *policy.Engine
	log    *zap.Logger
}

func NewLoanWorkflow(ledger *store.Ledger, engine *policy.Engine, log *zap.Logger) *LoanWorkflow {
	return &LoanWorkflow{ledger: ledger, engine: engine, log: log}
}

// Apply records a loan application. No funds move; eligibility is judged at
// approval time against the deposit base of that moment.
func (w *LoanWorkflow) Apply(ctx context.Context, customerID, accountID uint64, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return denied("invalid amount"), nil
	}
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		account, err := tx.GetAccount(accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if account.UserID != customerID {
			res = denied("account does not belong to the applicant")
			return errRollback
		}
		if account.Status != models.AccountActive {
			res = denied("account is not active")
			return errRollback
		}

		loan := &models.Loan{
			CustomerID: customerID,
			AccountID:  accountID,
			Amount:     amount,
			Status:     models.LoanPending,
		}
		if err := tx.InsertLoan(loan); err != nil {
			return err
		}
		w.log.Info("loan application received",
			zap.Uint64("customer_id", customerID),
			zap.String("amount", amount.String()))
		res = success().withLoan(loan)
		return nil
	})
}

// Approve runs the full loan approval: tier and eligibility checks against
// the deposit base computed inside the same unit, then the account credit,
// the status transition, and the paired loan transaction record. The three
// effects commit together or not at all.
func (w *LoanWorkflow) Approve(ctx context.Context, actor policy.Actor, loanID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if loan.Status != models.LoanPending {
			res = notFound()
			return errRollback
		}

		deposits, err := tx.SumCompletedDeposits()
		if err != nil {
			return err
		}
		outstanding, err := tx.SumApprovedLoans()
		if err != nil {
			return err
		}
		active, err := tx.CountActiveLoansForCustomer(loan.CustomerID)
		if err != nil {
			return err
		}

		lctx := policy.LoanContext{
			DepositBase: deposits.Sub(outstanding),
			ActiveLoans: active,
		}
		switch d := w.engine.DecideLoan(actor.Role, loan.Amount, lctx); d.Outcome {
		case policy.Deny:
			res = denied(d.Reason)
			return errRollback
		case policy.Escalate:
			res = escalated(d.Reason)
			return errRollback
		}

		if err := tx.UpdateBalance(loan.AccountID, loan.Amount); err != nil {
			return err
		}
		if err := tx.UpdateLoanStatus(uint64(loan.ID), models.LoanApproved, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		disbursement := &models.Transaction{
			AccountID:   loan.AccountID,
			Type:        models.TxLoan,
			Amount:      loan.Amount,
			Description: "loan disbursement",
			Status:      models.TxCompleted,
			ApprovedBy:  &actor.ID,
		}
		if err := tx.InsertTransaction(disbursement); err != nil {
			return err
		}
		loan.Status = models.LoanApproved
		loan.ApprovedBy = &actor.ID
		w.log.Info("loan approved",
			zap.Uint64("loan_id", loanID),
			zap.String("amount", loan.Amount.String()),
			zap.Uint64("approved_by", actor.ID))
		res = success().withLoan(loan).withTransaction(disbursement)
		return nil
	})
}

// Reject moves a pending loan to rejected. No balance effect.
func (w *LoanWorkflow) Reject(ctx context.Context, actor policy.Actor, loanID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if loan.Status != models.LoanPending {
			res = notFound()
			return errRollback
		}

		switch d := w.engine.DecideLoanRejection(actor.Role, loan.Amount); d.Outcome {
		case policy.Deny:
			res = denied(d.Reason)
			return errRollback
		case policy.Escalate:
			res = escalated(d.Reason)
			return errRollback
		}

		if err := tx.UpdateLoanStatus(uint64(loan.ID), models.LoanRejected, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		loan.Status = models.LoanRejected
		loan.RejectedBy = &actor.ID
		res = success().withLoan(loan)
		return nil
	})
}
