package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fxtrade/internal/api/middleware"
	"fxtrade/internal/models"
	"fxtrade/internal/repository"
	"fxtrade/internal/service"
)

// AccountHandler отвечает за чтение счетов пользователя
//
// Endpoints:
// - GET /api/v1/accounts      - список счетов пользователя
// - GET /api/v1/accounts/{id} - конкретный счет
type AccountHandler struct {
	accounts service.AccountRepositoryInterface
	logger   *zap.Logger
}

// NewAccountHandler создает новый AccountHandler
func NewAccountHandler(accounts service.AccountRepositoryInterface, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// GetAccounts возвращает все счета пользователя
// GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	accounts, err := h.accounts.GetUserAccounts(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	if accounts == nil {
		accounts = []*models.Account{}
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Data: accounts})
}

// GetAccount возвращает один счет пользователя
// GET /api/v1/accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "")
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid account id", "")
		return
	}

	// Чужой счет неотличим от несуществующего
	account, err := h.accounts.FindByUserAndID(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "not_found", "Account not found", "")
			return
		}
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Data: account})
}
