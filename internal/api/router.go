package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/security"
	"github.com/example/bank-ledger/pkg/audit"
)

// Auditor receives a line for every handled request; the hash-chain logger in
// pkg/audit satisfies it.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// Dependencies wires the router. The ledger is split into narrow reader and
// writer interfaces so tests can substitute fakes for either side.
type Dependencies struct {
	Logger *slog.Logger

	LedgerReader interface {
		GetAccount(ctx context.Context, accountID string) (*ledger.AccountSummary, error)
		GetHistory(ctx context.Context, accountID string) ([]ledger.Transaction, error)
	}
	LedgerWriter interface {
		CreateAccount(ctx context.Context, name string, initialBalance float64) (*ledger.AccountSummary, error)
		Deposit(ctx context.Context, accountID string, amount float64) (*ledger.OperationResult, error)
		Withdraw(ctx context.Context, accountID string, amount float64) (*ledger.OperationResult, error)
		Transfer(ctx context.Context, fromID, toID string, amount float64) (*ledger.TransferResult, error)
	}

	Auditor      Auditor
	RateLimiter  *security.RedisTokenBucket
	MaxBodyBytes int64
}

// NewRouter builds the HTTP surface over the ledger core. Route shapes follow
// the account/transfer layout under /api; every mutating payload is checked
// against its JSON schema before the handler decodes it.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	createAccountV, err := security.NewJSONSchemaValidator(createAccountSchema)
	if err != nil {
		return nil, err
	}
	amountV, err := security.NewJSONSchemaValidator(amountSchema)
	if err != nil {
		return nil, err
	}
	transferV, err := security.NewJSONSchemaValidator(transferSchema)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter, rateLimitKeyByIP))
	}
	if deps.Auditor != nil {
		r.Use(AuditMiddleware(deps.Auditor))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.With(createAccountV.Middleware).Post("/", handleCreateAccount(deps))

			r.Route("/{account_id}", func(r chi.Router) {
				r.Get("/", handleGetAccount(deps))
				r.With(amountV.Middleware).Post("/deposit", handleDeposit(deps))
				r.With(amountV.Middleware).Post("/withdraw", handleWithdraw(deps))
				r.Get("/transactions", handleGetHistory(deps))
			})
		})

		r.With(transferV.Middleware).Post("/transfer", handleTransfer(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	return r, nil
}

func rateLimitKeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	return "ip:" + host
}
