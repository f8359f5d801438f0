package routes

import (
	"net/http"

	"github.com/GiorgiUbiria/banking_backoffice/internal/handlers"
	appmw "github.com/GiorgiUbiria/banking_backoffice/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Works Fine!"))
	})

	r.Post("/auth/login", handlers.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(appmw.Authenticated)

		r.Get("/auth/me", handlers.MeHandler)

		r.Get("/accounts", handlers.GetAccountsHandler)
		r.Post("/accounts", handlers.OpenAccountHandler)
		r.Get("/accounts/{id}/balance", handlers.AccountBalanceHandler)
		r.Get("/accounts/{id}/transactions", handlers.TransactionsHandler)

		r.Post("/transactions/deposit", handlers.DepositHandler)
		r.Post("/transactions/withdraw", handlers.WithdrawHandler)
		r.Post("/transactions/transfer", handlers.TransferHandler)

		r.Post("/loans", handlers.ApplyLoanHandler)
		r.Get("/loans", handlers.LoansHandler)

		// Back-office approval surface.
		r.Group(func(r chi.Router) {
			r.Use(appmw.StaffOnly)

			r.Get("/transactions/pending", handlers.PendingTransactionsHandler)
			r.Post("/transactions/{id}/approve", handlers.ApproveTransactionHandler)
			r.Post("/transactions/{id}/reject", handlers.RejectTransactionHandler)
			r.Post("/transfers/{id}/approve", handlers.ApproveTransferHandler)
			r.Post("/transfers/{id}/reject", handlers.RejectTransferHandler)

			r.Get("/loans/pending", handlers.PendingLoansHandler)
			r.Post("/loans/{id}/approve", handlers.ApproveLoanHandler)
			r.Post("/loans/{id}/reject", handlers.RejectLoanHandler)
		})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
