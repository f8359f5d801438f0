package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GiorgiUbiria/banking_backoffice/configs"
	"github.com/GiorgiUbiria/banking_backoffice/internal/handlers"
	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/routes"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/GiorgiUbiria/banking_backoffice/internal/workflow"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testEnv struct {
	db     *gorm.DB
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.InitTest()
	configs.AppConfig.JWT.SECRET = testSecret

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Account{}, &models.Transaction{}, &models.Loan{}))

	handlers.Init(store.NewLedger(db), policy.NewEngine(policy.DefaultLimits()), logger.Log)
	return &testEnv{db: db, router: routes.NewRoutes()}
}

func (e *testEnv) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Name: email, Email: email, Password: string(hash), Role: role}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) account(t *testing.T, owner *models.User, number, balance string) *models.Account {
	t.Helper()
	a := &models.Account{
		UserID:  uint64(owner.ID),
		Number:  number,
		Balance: decimal.RequireFromString(balance),
		Status:  models.AccountActive,
	}
	require.NoError(t, e.db.Create(a).Error)
	return a
}

func token(t *testing.T, u *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": u.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.user(t, "teller@bank.local", "employee")

	rec := e.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "teller@bank.local", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	rec = e.request(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "teller@bank.local", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDepositEndpoint(t *testing.T) {
	e := newTestEnv(t)
	teller := e.user(t, "teller@bank.local", "employee")
	cust := e.user(t, "cust@test.com", "customer")
	acc := e.account(t, cust, "acc-1", "1000.00")

	rec := e.request(t, http.MethodPost, "/transactions/deposit", token(t, teller), map[string]any{
		"account_id": acc.ID, "amount": "500.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res workflow.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, workflow.StatusSuccess, res.Status)

	var got models.Account
	require.NoError(t, e.db.First(&got, acc.ID).Error)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1500.00")))
}

func TestDepositOwnership(t *testing.T) {
	e := newTestEnv(t)
	cust := e.user(t, "cust@test.com", "customer")
	other := e.user(t, "other@test.com", "customer")
	acc := e.account(t, other, "acc-other", "1000.00")

	// A customer cannot queue deposits against someone else's account.
	rec := e.request(t, http.MethodPost, "/transactions/deposit", token(t, cust), map[string]any{
		"account_id": acc.ID, "amount": "500.00",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var got models.Account
	require.NoError(t, e.db.First(&got, acc.ID).Error)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1000.00")))

	// The owner can.
	rec = e.request(t, http.MethodPost, "/transactions/deposit", token(t, other), map[string]any{
		"account_id": acc.ID, "amount": "500.00",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestTransferApprovalFlow(t *testing.T) {
	e := newTestEnv(t)
	teller := e.user(t, "teller@bank.local", "employee")
	cust := e.user(t, "cust@test.com", "customer")
	src := e.account(t, cust, "src", "25000")
	other := e.user(t, "other@test.com", "customer")
	e.account(t, other, "dst", "0")

	rec := e.request(t, http.MethodPost, "/transactions/transfer", token(t, cust), map[string]any{
		"source_account_id": src.ID, "destination_number": "dst", "amount": "20000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res workflow.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Transaction)
	require.Equal(t, models.TxPending, res.Transaction.Status)

	// Customers cannot reach the approval surface at all.
	rec = e.request(t, http.MethodPost, fmt.Sprintf("/transfers/%d/approve", res.Transaction.ID), token(t, cust), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.request(t, http.MethodPost, fmt.Sprintf("/transfers/%d/approve", res.Transaction.ID), token(t, teller), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var srcAfter models.Account
	require.NoError(t, e.db.First(&srcAfter, src.ID).Error)
	assert.True(t, srcAfter.Balance.Equal(decimal.RequireFromString("5000")))
}

func TestTransferEscalationReturns202(t *testing.T) {
	e := newTestEnv(t)
	teller := e.user(t, "teller@bank.local", "employee")
	cust := e.user(t, "cust@test.com", "customer")
	src := e.account(t, cust, "src", "80000")
	other := e.user(t, "other@test.com", "customer")
	e.account(t, other, "dst", "0")

	rec := e.request(t, http.MethodPost, "/transactions/transfer", token(t, cust), map[string]any{
		"source_account_id": src.ID, "destination_number": "dst", "amount": "60000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res workflow.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	rec = e.request(t, http.MethodPost, fmt.Sprintf("/transfers/%d/approve", res.Transaction.ID), token(t, teller), nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLoanEndpoints(t *testing.T) {
	e := newTestEnv(t)
	mgr := e.user(t, "manager@bank.local", "manager")
	cust := e.user(t, "cust@test.com", "customer")
	acc := e.account(t, cust, "acc", "0")
	require.NoError(t, e.db.Create(&models.Transaction{
		AccountID: uint64(acc.ID),
		Type:      models.TxDeposit,
		Amount:    decimal.RequireFromString("100000"),
		Status:    models.TxCompleted,
	}).Error)

	rec := e.request(t, http.MethodPost, "/loans", token(t, cust), map[string]any{
		"account_id": acc.ID, "amount": "30000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res workflow.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Loan)

	rec = e.request(t, http.MethodPost, fmt.Sprintf("/loans/%d/approve", res.Loan.ID), token(t, mgr), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got models.Account
	require.NoError(t, e.db.First(&got, acc.ID).Error)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("30000")))

	// Re-approving a settled loan is a safe no-op.
	rec = e.request(t, http.MethodPost, fmt.Sprintf("/loans/%d/approve", res.Loan.ID), token(t, mgr), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	e := newTestEnv(t)

	rec := e.request(t, http.MethodGet, "/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.request(t, http.MethodPost, "/transactions/deposit", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	e := newTestEnv(t)
	cust := e.user(t, "cust@test.com", "customer")

	rec := e.request(t, http.MethodPost, "/transactions/deposit", token(t, cust), map[string]any{
		"amount": "10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	acc := e.account(t, cust, "acc", "0")
	rec = e.request(t, http.MethodPost, "/transactions/deposit", token(t, cust), map[string]any{
		"account_id": acc.ID, "amount": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
