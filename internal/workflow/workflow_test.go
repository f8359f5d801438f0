package workflow

import (
	"fmt"
	"strings"
	"testing"

	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	customer = policy.Actor{ID: 1, Role: policy.RoleCustomer}
	employee = policy.Actor{ID: 2, Role: policy.RoleEmployee}
	manager  = policy.Actor{ID: 3, Role: policy.RoleManager}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	ledger *store.Ledger
	tx     *TransactionWorkflow
	loans  *LoanWorkflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Account{}, &models.Transaction{}, &models.Loan{}))

	ledger := store.NewLedger(db)
	engine := policy.NewEngine(policy.DefaultLimits())
	log := zap.NewNop()
	return &fixture{
		ledger: ledger,
		tx:     NewTransactionWorkflow(ledger, engine, log),
		loans:  NewLoanWorkflow(ledger, engine, log),
	}
}

func (f *fixture) account(t *testing.T, owner uint64, number, balance string) *models.Account {
	t.Helper()
	a := &models.Account{UserID: owner, Number: number, Balance: d(balance), Status: models.AccountActive}
	require.NoError(t, f.ledger.CreateAccount(a))
	return a
}

func (f *fixture) balance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	a, err := f.ledger.GetAccount(uint64(id))
	require.NoError(t, err)
	return a.Balance
}

// depositBase seeds completed deposits so loan approvals have lending
// capacity to draw on.
func (f *fixture) depositBase(t *testing.T, accountID uint, amount string) {
	t.Helper()
	require.NoError(t, f.ledger.InsertTransaction(&models.Transaction{
		AccountID: uint64(accountID),
		Type:      models.TxDeposit,
		Amount:    d(amount),
		Status:    models.TxCompleted,
	}))
}
