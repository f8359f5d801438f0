package policy

import "github.com/shopspring/decimal"

// LimitsFromValues builds Limits from configuration values, falling back to
// the defaults for any value left unset (zero).
func LimitsFromValues(transferAuto, employeeTransfer, employeeTransaction, employeeLoan, depositRatio float64) Limits {
	l := DefaultLimits()
	if transferAuto > 0 {
		l.TransferAutoProcess = decimal.NewFromFloat(transferAuto)
	}
	if employeeTransfer > 0 {
		l.EmployeeTransferMax = decimal.NewFromFloat(employeeTransfer)
	}
	if employeeTransaction > 0 {
		l.EmployeeTransactionMax = decimal.NewFromFloat(employeeTransaction)
	}
	if employeeLoan > 0 {
		l.EmployeeLoanMax = decimal.NewFromFloat(employeeLoan)
	}
	if depositRatio > 0 {
		l.LoanDepositRatio = decimal.NewFromFloat(depositRatio)
	}
	return l
}
