package configs

import (
	"errors"

	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	// Limits override the built-in approval tier ceilings. Zero values fall
	// back to the defaults (15000 / 50000 / 10000 / 50000 / 0.8).
	Limits struct {
		TransferAutoProcess    float64 `mapstructure:"transfer_auto_process"`
		EmployeeTransferMax    float64 `mapstructure:"employee_transfer_max"`
		EmployeeTransactionMax float64 `mapstructure:"employee_transaction_max"`
		EmployeeLoanMax        float64 `mapstructure:"employee_loan_max"`
		LoanDepositRatio       float64 `mapstructure:"loan_deposit_ratio"`
	} `mapstructure:"limits"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)
}
