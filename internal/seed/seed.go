package seed

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/GiorgiUbiria/banking_backoffice/internal/models"
	"github.com/GiorgiUbiria/banking_backoffice/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedPassword = "password123"
	managerEmail = "manager@bank.local"
)

var seedUsers = []struct {
	Name  string
	Email string
	Role  string
}{
	{"Branch Manager", managerEmail, "manager"},
	{"Teller One", "teller1@bank.local", "employee"},
	{"Teller Two", "teller2@bank.local", "employee"},
	{"Test Customer 1", "customer1@test.com", "customer"},
	{"Test Customer 2", "customer2@test.com", "customer"},
}

var openingBalance = decimal.RequireFromString("1000.00")

func Run() {
	db := store.DB
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", managerEmail).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	hashed := string(hash)

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, u := range seedUsers {
			user := models.User{Name: u.Name, Email: u.Email, Password: hashed, Role: u.Role}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if u.Role != "customer" {
				continue
			}
			account := models.Account{
				UserID:  uint64(user.ID),
				Number:  uuid.NewString(),
				Balance: openingBalance,
				Status:  models.AccountActive,
			}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			// Opening balance enters the books as a completed deposit so the
			// deposit base reflects it.
			opening := models.Transaction{
				AccountID:   uint64(account.ID),
				Type:        models.TxDeposit,
				Amount:      openingBalance,
				Description: "opening balance",
				Status:      models.TxCompleted,
			}
			if err := tx.Create(&opening).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded staff and test customers", zap.String("password", seedPassword))
}
