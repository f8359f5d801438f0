package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/GiorgiUbiria/banking_backoffice/internal/httputil"
	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/GiorgiUbiria/banking_backoffice/internal/middleware"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DepositRequest struct {
	AccountID   uint64 `json:"account_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

type WithdrawalRequest struct {
	AccountID   uint64 `json:"account_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description"`
}

type TransferRequest struct {
	SourceAccountID   uint64 `json:"source_account_id" validate:"required"`
	DestinationNumber string `json:"destination_number" validate:"required"`
	Amount            string `json:"amount" validate:"required"`
}

// writeResult maps a workflow outcome onto an HTTP status. Escalation is not
// an error: 202 tells the client the request stands but a higher tier must act.
func writeResult(w http.ResponseWriter, res workflow.Result, err error) {
	if err != nil {
		logger.Log.Error("workflow operation failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "operation failed")
		return
	}
	switch res.Status {
	case workflow.StatusSuccess:
		httputil.WriteJSON(w, http.StatusOK, res)
	case workflow.StatusEscalated:
		httputil.WriteJSON(w, http.StatusAccepted, res)
	case workflow.StatusNotFound:
		httputil.WriteJSON(w, http.StatusNotFound, res)
	default:
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, res)
	}
}

func parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid amount")
		return decimal.Zero, false
	}
	return amount, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}

// mustOwnAccount keeps customers on their own accounts. Staff can act on any
// account.
func mustOwnAccount(w http.ResponseWriter, actor policy.Actor, accountID uint64) bool {
	if actor.Role.Staff() {
		return true
	}
	account, err := ledger.GetAccount(accountID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return false
	}
	if account.UserID != actor.ID {
		httputil.WriteError(w, http.StatusForbidden, "not your account")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func DepositHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !httputil.ValidateRequest(w, req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if !mustOwnAccount(w, actor, req.AccountID) {
		return
	}
	res, err := transactions.InitiateDeposit(r.Context(), actor, req.AccountID, amount, req.Description)
	writeResult(w, res, err)
}

func WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !httputil.ValidateRequest(w, req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if !mustOwnAccount(w, actor, req.AccountID) {
		return
	}
	res, err := transactions.InitiateWithdrawal(r.Context(), actor, req.AccountID, amount, req.Description)
	writeResult(w, res, err)
}

func TransferHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !httputil.ValidateRequest(w, req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if !mustOwnAccount(w, actor, req.SourceAccountID) {
		return
	}
	res, err := transactions.InitiateTransfer(r.Context(), actor, req.SourceAccountID, req.DestinationNumber, amount)
	writeResult(w, res, err)
}

func ApproveTransferHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := transactions.ApproveTransfer(r.Context(), actor, id)
	writeResult(w, res, err)
}

func RejectTransferHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := transactions.RejectTransfer(r.Context(), actor, id)
	writeResult(w, res, err)
}

func ApproveTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := transactions.ApproveTransaction(r.Context(), actor, id)
	writeResult(w, res, err)
}

func RejectTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := transactions.RejectTransaction(r.Context(), actor, id)
	writeResult(w, res, err)
}

func PendingTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := ledger.PendingTransactions()
	if err != nil {
		logger.Log.Error("failed to fetch pending transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch pending transactions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}
