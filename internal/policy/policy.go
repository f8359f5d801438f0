// Package policy holds the approval rules for back-office actions. It is pure
// decision logic: given an actor's role, the action, and the amount, it answers
// allow, deny, or escalate. It never touches the database; callers gather
// whatever context a rule needs (deposit base, active loan count) and pass it in.
package policy

import "github.com/shopspring/decimal"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// ParseRole validates a role string coming from a token claim.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleEmployee, RoleManager:
		return Role(s), true
	}
	return "", false
}

// Staff reports whether the role belongs to bank personnel.
func (r Role) Staff() bool {
	return r == RoleEmployee || r == RoleManager
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   uint64
	Role Role
}

type Outcome int

const (
	// Allow: the actor may perform the action.
	Allow Outcome = iota
	// Deny: the actor may not perform the action and no higher tier can be
	// asked to; the reason is surfaced to the caller verbatim.
	Deny
	// Escalate: the actor's tier is too low but a manager may act. Not an
	// error; the workflow reports it without mutating anything.
	Escalate
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

func allow() Decision { return Decision{Outcome: Allow} }

func deny(reason string) Decision { return Decision{Outcome: Deny, Reason: reason} }

func escalate(reason string) Decision { return Decision{Outcome: Escalate, Reason: reason} }

// Limits are the monetary ceilings gating each tier. Zero value is unusable;
// construct with DefaultLimits or from configuration.
type Limits struct {
	// TransferAutoProcess is the ceiling under which transfers complete
	// without any approval actor.
	TransferAutoProcess decimal.Decimal
	// EmployeeTransferMax is the largest transfer an employee may approve;
	// above it the transfer escalates to a manager.
	EmployeeTransferMax decimal.Decimal
	// EmployeeTransactionMax is the largest plain deposit/withdrawal any
	// staff member may approve. There is no manager escalation path for
	// plain transactions.
	EmployeeTransactionMax decimal.Decimal
	// EmployeeLoanMax is the largest loan an employee may approve.
	EmployeeLoanMax decimal.Decimal
	// LoanDepositRatio caps employee-approved loans at this fraction of the
	// bank's deposit base. Managers are exempt.
	LoanDepositRatio decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{
		TransferAutoProcess:    decimal.NewFromInt(15000),
		EmployeeTransferMax:    decimal.NewFromInt(50000),
		EmployeeTransactionMax: decimal.NewFromInt(10000),
		EmployeeLoanMax:        decimal.NewFromInt(50000),
		LoanDepositRatio:       decimal.RequireFromString("0.8"),
	}
}

// Engine evaluates tier rules against a fixed set of limits.
type Engine struct {
	limits Limits
}

func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

func (e *Engine) Limits() Limits { return e.limits }

// DecideTransfer rules on approving a pending transfer. Transfers at or below
// the auto-process ceiling never reach the engine; the workflow completes them
// on initiation.
func (e *Engine) DecideTransfer(role Role, amount decimal.Decimal) Decision {
	switch role {
	case RoleManager:
		return allow()
	case RoleEmployee:
		if amount.GreaterThan(e.limits.EmployeeTransferMax) {
			return escalate("amount exceeds employee approval limit, requires manager")
		}
		return allow()
	case RoleCustomer:
		return deny("customers cannot approve transfers")
	default:
		return deny("unknown role")
	}
}

// DecideTransaction rules on approving a pending deposit or withdrawal.
// Employees and managers share the same ceiling: the policy defines no
// manager path for plain transactions, only transfers and loans escalate.
func (e *Engine) DecideTransaction(role Role, amount decimal.Decimal) Decision {
	switch role {
	case RoleEmployee, RoleManager:
		if amount.GreaterThan(e.limits.EmployeeTransactionMax) {
			return deny("amount exceeds transaction approval limit")
		}
		return allow()
	case RoleCustomer:
		return deny("customers cannot approve transactions")
	default:
		return deny("unknown role")
	}
}

// LoanContext is the aggregate state a loan approval is judged against,
// computed by the caller inside the same atomic unit as the approval.
type LoanContext struct {
	// DepositBase is sum(completed deposits) minus sum(approved loans).
	DepositBase decimal.Decimal
	// ActiveLoans counts the customer's currently approved loans.
	ActiveLoans int64
}

// DecideLoan rules on approving a pending loan. One approved loan per
// customer, for every tier. Employees are additionally capped at
// EmployeeLoanMax and at LoanDepositRatio of the deposit base; managers
// carry neither ceiling.
func (e *Engine) DecideLoan(role Role, amount decimal.Decimal, ctx LoanContext) Decision {
	switch role {
	case RoleEmployee, RoleManager:
		if ctx.ActiveLoans > 0 {
			return deny("customer already has an active loan")
		}
		if role == RoleManager {
			return allow()
		}
		if cap := ctx.DepositBase.Mul(e.limits.LoanDepositRatio); amount.GreaterThan(cap) {
			return deny("amount exceeds available lending capacity")
		}
		if amount.GreaterThan(e.limits.EmployeeLoanMax) {
			return deny("amount exceeds employee loan limit")
		}
		return allow()
	case RoleCustomer:
		return deny("customers cannot approve loans")
	default:
		return deny("unknown role")
	}
}

// DecideTransferRejection mirrors the transfer approval window: an actor may
// reject only what they could have approved.
func (e *Engine) DecideTransferRejection(role Role, amount decimal.Decimal) Decision {
	return e.DecideTransfer(role, amount)
}

// DecideTransactionRejection mirrors the plain-transaction approval window.
func (e *Engine) DecideTransactionRejection(role Role, amount decimal.Decimal) Decision {
	return e.DecideTransaction(role, amount)
}

// DecideLoanRejection mirrors the loan approval tier window. The business
// checks (deposit base, active loan count) gate approval only; rejecting a
// loan the bank could not fund is always sensible.
func (e *Engine) DecideLoanRejection(role Role, amount decimal.Decimal) Decision {
	switch role {
	case RoleManager:
		return allow()
	case RoleEmployee:
		if amount.GreaterThan(e.limits.EmployeeLoanMax) {
			return deny("amount exceeds employee loan limit")
		}
		return allow()
	case RoleCustomer:
		return deny("customers cannot reject loans")
	default:
		return deny("unknown role")
	}
}
