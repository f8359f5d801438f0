package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GiorgiUbiria/banking_backoffice/internal/httputil"
	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"go.uber.org/zap"
)

type LoanApplicationRequest struct {
	AccountID uint64 `json:"account_id" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

func ApplyLoanHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LoanApplicationRequest
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
	res, err := loans.Apply(r.Context(), actor.ID, req.AccountID, amount)
	writeResult(w, res, err)
}

func LoansHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	list, err := ledger.LoansForCustomer(actor.ID)
	if err != nil {
		logger.Log.Error("failed to fetch loans", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch loans")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func PendingLoansHandler(w http.ResponseWriter, r *http.Request) {
	list, err := ledger.PendingLoans()
	if err != nil {
		logger.Log.Error("failed to fetch pending loans", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch pending loans")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func ApproveLoanHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := loans.Approve(r.Context(), actor, id)
	writeResult(w, res, err)
}

func RejectLoanHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := loans.Reject(r.Context(), actor, id)
	writeResult(w, res, err)
}
