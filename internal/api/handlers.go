package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/bank-ledger/internal/ledger"
	"github.com/example/bank-ledger/internal/security"
)

type createAccountRequest struct {
	Name           string  `json:"name"`
	InitialBalance float64 `json:"initial_balance"`
}

type accountResponse struct {
	CorrelationID string                 `json:"correlation_id"`
	Account       *ledger.AccountSummary `json:"account"`
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

type operationResponse struct {
	CorrelationID string                  `json:"correlation_id"`
	Result        *ledger.OperationResult `json:"result"`
}

type transferRequest struct {
	FromAccountID string  `json:"from_account_id"`
	ToAccountID   string  `json:"to_account_id"`
	Amount        float64 `json:"amount"`
}

type transferResponse struct {
	CorrelationID string                 `json:"correlation_id"`
	Result        *ledger.TransferResult `json:"result"`
}

type historyResponse struct {
	CorrelationID string               `json:"correlation_id"`
	AccountID     string               `json:"account_id"`
	Transactions  []ledger.Transaction `json:"transactions"`
}

// writeLedgerError maps the core's four error kinds onto transport statuses.
// OperationInProgress shares 409 with InsufficientFunds but keeps its own code
// so clients know it is worth a retry.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		security.WriteJSONError(w, r, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		security.WriteJSONError(w, r, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, ledger.ErrOperationInProgress):
		security.WriteJSONError(w, r, http.StatusConflict, "operation_in_progress", err.Error())
	default:
		security.WriteJSONError(w, r, http.StatusInternalServerError, "internal_error", "")
	}
}

func handleCreateAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "")
			return
		}

		account, err := deps.LedgerWriter.CreateAccount(r.Context(), req.Name, req.InitialBalance)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusCreated, accountResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Account:       account,
		})
	}
}

func handleGetAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := deps.LedgerReader.GetAccount(r.Context(), chi.URLParam(r, "account_id"))
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, accountResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Account:       account,
		})
	}
}

func handleDeposit(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "")
			return
		}

		result, err := deps.LedgerWriter.Deposit(r.Context(), chi.URLParam(r, "account_id"), req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, operationResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Result:        result,
		})
	}
}

func handleWithdraw(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req amountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "")
			return
		}

		result, err := deps.LedgerWriter.Withdraw(r.Context(), chi.URLParam(r, "account_id"), req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, operationResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Result:        result,
		})
	}
}

func handleTransfer(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			security.WriteJSONError(w, r, http.StatusBadRequest, "invalid_json", "")
			return
		}

		result, err := deps.LedgerWriter.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, transferResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			Result:        result,
		})
	}
}

func handleGetHistory(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := chi.URLParam(r, "account_id")
		history, err := deps.LedgerReader.GetHistory(r.Context(), accountID)
		if err != nil {
			writeLedgerError(w, r, err)
			return
		}

		writeJSON(w, r, http.StatusOK, historyResponse{
			CorrelationID: security.CorrelationIDFromContext(r.Context()),
			AccountID:     accountID,
			Transactions:  history,
		})
	}
}
