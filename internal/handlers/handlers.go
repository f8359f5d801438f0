package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/GiorgiUbiria/banking_backoffice/configs"
	"github.com/GiorgiUbiria/banking_backoffice/internal/httputil"
	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/GiorgiUbiria/banking_backoffice/internal/middleware"
	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/GiorgiUbiria/banking_backoffice/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ledger       *store.Ledger
	transactions *workflow.TransactionWorkflow
	loans        *workflow.LoanWorkflow
)

// Init wires the handler package to its collaborators. Called once from main
// (and from handler tests with an in-memory ledger).
func Init(l *store.Ledger, engine *policy.Engine, log *zap.Logger) {
	ledger = l
	transactions = workflow.NewTransactionWorkflow(l, engine, log)
	loans = workflow.NewLoanWorkflow(l, engine, log)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := ledger.FindUserByEmail(req.Email)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(configs.AppConfig.JWT.SECRET))
	if err != nil {
		logger.Log.Error("failed to sign jwt", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := ledger.GetUser(actor.ID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "user not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// -- accounts --

func GetAccountsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accounts, err := ledger.AccountsForUser(actor.ID)
	if err != nil {
		logger.Log.Error("failed to fetch accounts", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch accounts")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accounts)
}

func OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account := &models.Account{
		UserID:  actor.ID,
		Number:  uuid.NewString(),
		Balance: decimal.Zero,
		Status:  models.AccountActive,
	}
	if err := ledger.CreateAccount(account); err != nil {
		logger.Log.Error("failed to open account", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to open account")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, account)
}

func AccountBalanceHandler(w http.ResponseWriter, r *http.Request) {
	_, account, ok := ownedAccount(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"number":  account.Number,
		"balance": account.Balance.String(),
	})
}

func TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	_, account, ok := ownedAccount(w, r)
	if !ok {
		return
	}
	txs, err := ledger.TransactionsForAccount(uint64(account.ID))
	if err != nil {
		logger.Log.Error("failed to fetch transactions", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txs)
}

// ownedAccount loads the {id} account and enforces that the caller owns it or
// is staff.
func ownedAccount(w http.ResponseWriter, r *http.Request) (policy.Actor, *models.Account, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return policy.Actor{}, nil, false
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid account id")
		return policy.Actor{}, nil, false
	}
	account, err := ledger.GetAccount(id)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "account not found")
		return policy.Actor{}, nil, false
	}
	if account.UserID != actor.ID && !actor.Role.Staff() {
		httputil.WriteError(w, http.StatusForbidden, "not your account")
		return policy.Actor{}, nil, false
	}
	return actor, account, true
}
