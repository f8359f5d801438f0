package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// transferDescPrefix encodes the destination account number in a pending
// transfer's description until approval resolves it.
const transferDescPrefix = "To: "

// errRollback aborts the atomic unit after the outcome has been recorded in
// the surrounding Result. It never escapes the workflow.
var errRollback = errors.New("workflow: rollback")

type TransactionWorkflow struct {
	ledger *store.Ledger
	engine *policy.Engine
	log    *zap.Logger
}

func NewTransactionWorkflow(ledger *store.Ledger, engine *policy.Engine, log *zap.Logger) *TransactionWorkflow {
	return &TransactionWorkflow{ledger: ledger, engine: engine, log: log}
}

// run executes fn atomically, translating the errRollback sentinel back into
// the Result fn left behind. Any other error is a storage failure.
func run(ctx context.Context, ledger *store.Ledger, res *Result, fn func(tx *store.Ledger) error) (Result, error) {
	err := ledger.Atomically(ctx, fn)
	if err != nil && !errors.Is(err, errRollback) {
		return Result{}, err
	}
	return *res, nil
}

// InitiateDeposit creates a deposit. Staff deposits apply immediately: the
// balance increment and a completed transaction commit as one unit. Customer
// deposits are recorded pending and move funds only once staff approves them.
func (w *TransactionWorkflow) InitiateDeposit(ctx context.Context, actor policy.Actor, accountID uint64, amount decimal.Decimal, description string) (Result, error) {
	if !amount.IsPositive() {
		return denied("invalid amount"), nil
	}
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		account, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if account.Status != models.AccountActive {
			res = denied("account is not active")
			return errRollback
		}

		t := &models.Transaction{
			AccountID:   accountID,
			Type:        models.TxDeposit,
			Amount:      amount,
			Description: description,
			Status:      models.TxPending,
		}
		if actor.Role.Staff() {
			if err := tx.UpdateBalance(accountID, amount); err != nil {
				return err
			}
			t.Status = models.TxCompleted
			t.ApprovedBy = &actor.ID
		}
		if err := tx.InsertTransaction(t); err != nil {
			return err
		}
		w.log.Info("deposit initiated",
			zap.Uint64("account_id", accountID),
			zap.String("amount", amount.String()),
			zap.String("status", t.Status))
		res = success().withTransaction(t)
		return nil
	})
}

// InitiateWithdrawal records a pending withdrawal. Funds leave the account
// only at approval time; the balance check here is an early courtesy and is
// repeated under lock inside ApproveTransaction.
func (w *TransactionWorkflow) InitiateWithdrawal(ctx context.Context, actor policy.Actor, accountID uint64, amount decimal.Decimal, description string) (Result, error) {
	if !amount.IsPositive() {
		return denied("invalid amount"), nil
	}
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		account, err := tx.GetAccountForUpdate(accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if account.Status != models.AccountActive {
			res = denied("account is not active")
			return errRollback
		}
		if account.Balance.LessThan(amount) {
			res = denied("insufficient funds")
			return errRollback
		}

		t := &models.Transaction{
			AccountID:   accountID,
			Type:        models.TxWithdrawal,
			Amount:      amount,
			Description: description,
			Status:      models.TxPending,
		}
		if err := tx.InsertTransaction(t); err != nil {
			return err
		}
		res = success().withTransaction(t)
		return nil
	})
}

// InitiateTransfer moves funds between two accounts. Amounts at or below the
// auto-process ceiling debit, credit, and complete in one unit with no
// approval actor. Larger amounts are stored pending; nothing is debited until
// a staff member approves.
func (w *TransactionWorkflow) InitiateTransfer(ctx context.Context, actor policy.Actor, sourceAccountID uint64, destNumber string, amount decimal.Decimal) (Result, error) {
	if !amount.IsPositive() {
		return denied("invalid amount"), nil
	}
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		source, err := tx.GetAccount(sourceAccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if source.Number == destNumber {
			res = denied("source and destination accounts are identical")
			return errRollback
		}
		dest, err := tx.FindAccountByNumber(destNumber)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = denied("destination account not found")
				return errRollback
			}
			return err
		}
		source, dest, err = lockAccountPair(tx, uint64(source.ID), uint64(dest.ID))
		if err != nil {
			return err
		}
		if source.Status != models.AccountActive {
			res = denied("account is not active")
			return errRollback
		}
		if dest.Status != models.AccountActive {
			res = denied("destination account is not active")
			return errRollback
		}
		if source.Balance.LessThan(amount) {
			res = denied("insufficient funds")
			return errRollback
		}

		t := &models.Transaction{
			AccountID:   sourceAccountID,
			Type:        models.TxTransfer,
			Amount:      amount,
			Description: transferDescPrefix + destNumber,
			Status:      models.TxPending,
		}
		if amount.LessThanOrEqual(w.engine.Limits().TransferAutoProcess) {
			if err := tx.UpdateBalance(uint64(source.ID), amount.Neg()); err != nil {
				return err
			}
			if err := tx.UpdateBalance(uint64(dest.ID), amount); err != nil {
				return err
			}
			t.Status = models.TxCompleted
		}
		if err := tx.InsertTransaction(t); err != nil {
			return err
		}
		w.log.Info("transfer initiated",
			zap.Uint64("source_account_id", sourceAccountID),
			zap.String("destination", destNumber),
			zap.String("amount", amount.String()),
			zap.String("status", t.Status))
		res = success().withTransaction(t)
		return nil
	})
}

// ApproveTransfer completes a pending transfer: tier check, destination
// resolution, funds re-check under the row locks, then the paired debit/credit
// and the status transition, all in one unit. The pending-only status guard means a
// concurrent second approval observes not_found instead of re-applying.
func (w *TransactionWorkflow) ApproveTransfer(ctx context.Context, actor policy.Actor, transactionID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		t, err := tx.GetTransactionForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if t.Status != models.TxPending {
			res = notFound()
			return errRollback
		}
		if t.Type != models.TxTransfer {
			res = denied("transaction is not a transfer")
			return errRollback
		}

		switch d := w.engine.DecideTransfer(actor.Role, t.Amount); d.Outcome {
		case policy.Deny:
			res = denied(d.Reason)
			return errRollback
		case policy.Escalate:
			res = escalated(d.Reason)
			return errRollback
		}

		destNumber, ok := parseDestination(t.Description)
		if !ok {
			res = denied("destination account not found")
			return errRollback
		}
		source, err := tx.GetAccount(t.AccountID)
		if err != nil {
			return err
		}
		if source.Number == destNumber {
			res = denied("source and destination accounts are identical")
			return errRollback
		}
		dest, err := tx.FindAccountByNumber(destNumber)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = denied("destination account not found")
				return errRollback
			}
			return err
		}
		source, dest, err = lockAccountPair(tx, uint64(source.ID), uint64(dest.ID))
		if err != nil {
			return err
		}
		if source.Balance.LessThan(t.Amount) {
			res = denied("insufficient funds")
			return errRollback
		}

		if err := tx.UpdateBalance(uint64(source.ID), t.Amount.Neg()); err != nil {
			return err
		}
		if err := tx.UpdateBalance(uint64(dest.ID), t.Amount); err != nil {
			return err
		}
		if err := tx.UpdateTransactionStatus(uint64(t.ID), models.TxCompleted, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		t.Status = models.TxCompleted
		t.ApprovedBy = &actor.ID
		w.log.Info("transfer approved",
			zap.Uint64("transaction_id", transactionID),
			zap.Uint64("approved_by", actor.ID))
		res = success().withTransaction(t)
		return nil
	})
}

// RejectTransfer moves a pending transfer to rejected. Pending transfers were
// never debited, so rejection touches no balance.
func (w *TransactionWorkflow) RejectTransfer(ctx context.Context, actor policy.Actor, transactionID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		t, err := tx.GetTransactionForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if t.Status != models.TxPending {
			res = notFound()
			return errRollback
		}
		if t.Type != models.TxTransfer {
			res = denied("transaction is not a transfer")
			return errRollback
		}

		switch d := w.engine.DecideTransferRejection(actor.Role, t.Amount); d.Outcome {
		case policy.Deny:
			res = denied(d.Reason)
			return errRollback
		case policy.Escalate:
			res = escalated(d.Reason)
			return errRollback
		}

		if err := tx.UpdateTransactionStatus(uint64(t.ID), models.TxRejected, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		t.Status = models.TxRejected
		t.RejectedBy = &actor.ID
		res = success().withTransaction(t)
		return nil
	})
}

// ApproveTransaction completes a pending deposit or withdrawal, applying the
// balance delta together with the transition. Transfers have their own path.
func (w *TransactionWorkflow) ApproveTransaction(ctx context.Context, actor policy.Actor, transactionID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		t, err := tx.GetTransactionForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if t.Status != models.TxPending {
			res = notFound()
			return errRollback
		}
		if t.Type != models.TxDeposit && t.Type != models.TxWithdrawal {
			res = denied("transaction is not a deposit or withdrawal")
			return errRollback
		}

		if d := w.engine.DecideTransaction(actor.Role, t.Amount); d.Outcome != policy.Allow {
			res = denied(d.Reason)
			return errRollback
		}

		account, err := tx.GetAccountForUpdate(t.AccountID)
		if err != nil {
			return err
		}
		delta := t.Amount
		if t.Type == models.TxWithdrawal {
			if account.Balance.LessThan(t.Amount) {
				res = denied("insufficient funds")
				return errRollback
			}
			delta = t.Amount.Neg()
		}
		if err := tx.UpdateBalance(uint64(account.ID), delta); err != nil {
			return err
		}
		if err := tx.UpdateTransactionStatus(uint64(t.ID), models.TxCompleted, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		t.Status = models.TxCompleted
		t.ApprovedBy = &actor.ID
		w.log.Info("transaction approved",
			zap.Uint64("transaction_id", transactionID),
			zap.String("type", t.Type),
			zap.Uint64("approved_by", actor.ID))
		res = success().withTransaction(t)
		return nil
	})
}

// RejectTransaction moves a pending deposit or withdrawal to rejected.
func (w *TransactionWorkflow) RejectTransaction(ctx context.Context, actor policy.Actor, transactionID uint64) (Result, error) {
	var res Result
	return run(ctx, w.ledger, &res, func(tx *store.Ledger) error {
		t, err := tx.GetTransactionForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		if t.Status != models.TxPending {
			res = notFound()
			return errRollback
		}
		if t.Type != models.TxDeposit && t.Type != models.TxWithdrawal {
			res = denied("transaction is not a deposit or withdrawal")
			return errRollback
		}

		if d := w.engine.DecideTransactionRejection(actor.Role, t.Amount); d.Outcome != policy.Allow {
			res = denied(d.Reason)
			return errRollback
		}

		if err := tx.UpdateTransactionStatus(uint64(t.ID), models.TxRejected, actor.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				res = notFound()
				return errRollback
			}
			return err
		}
		t.Status = models.TxRejected
		t.RejectedBy = &actor.ID
		res = success().withTransaction(t)
		return nil
	})
}

// lockAccountPair locks both accounts of a transfer in ascending id order so
// two opposite-direction transfers can never hold their row locks crosswise.
// Callers have already ruled out source == destination.
func lockAccountPair(tx *store.Ledger, sourceID, destID uint64) (*models.Account, *models.Account, error) {
	firstID, secondID := sourceID, destID
	if destID < sourceID {
		firstID, secondID = destID, sourceID
	}
	first, err := tx.GetAccountForUpdate(firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := tx.GetAccountForUpdate(secondID)
	if err != nil {
		return nil, nil, err
	}
	if uint64(first.ID) == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

func parseDestination(description string) (string, bool) {
	number, ok := strings.CutPrefix(description, transferDescPrefix)
	if !ok || number == "" {
		return "", false
	}
	return number, true
}
