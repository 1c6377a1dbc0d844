package service

import "fxtrade/internal/models"

// Валидация выполняется на заблокированном снимке счетов и падает на
// первом нарушении. Порядок проверок фиксирован: существование ->
// владелец -> статус -> валюта -> баланс; сообщения стабильны и
// являются частью контракта API.

func validate(policy validationPolicy, dto *TradeDTO, from, to *models.Account) *ValidationError {
	if policy == policyAccountToAccount {
		return validateAccountToAccount(dto, from, to)
	}
	return validateExternalLeg(dto, from, to)
}

// validateExternalLeg - политика обычного Execute: нога назначения
// опциональна, у нее проверяются только существование и владелец
// (статус и валюта назначения не ограничиваются - зачисление может
// идти на счет в любой валюте)
func validateExternalLeg(dto *TradeDTO, from, to *models.Account) *ValidationError {
	if from == nil {
		return NewValidationError("from_account_id", "Account not found.")
	}
	if from.UserID != dto.UserID {
		return NewValidationError("from_account_id", "You do not own this account.")
	}
	if dto.ToAccountID != nil {
		if to == nil || to.UserID != dto.UserID {
			return NewValidationError("to_account_id", "Invalid destination account.")
		}
	}
	if !from.IsActive() {
		return NewValidationError("from_account_id", "Account is not active.")
	}
	if from.Currency != dto.FromCurrency {
		return NewValidationError("from_currency", "Currency does not match source account currency.")
	}
	if !from.HasSufficientBalance(dto.FromAmount) {
		return NewValidationError("from_amount", "Insufficient balance.")
	}
	return nil
}

// validateAccountToAccount - строгая политика перевода между своими
// счетами: обе ноги существуют, принадлежат пользователю, активны и
// совпадают по валютам с запросом
func validateAccountToAccount(dto *TradeDTO, from, to *models.Account) *ValidationError {
	if from == nil {
		return NewValidationError("from_account_id", "Source account not found.")
	}
	if from.UserID != dto.UserID {
		return NewValidationError("from_account_id", "You do not own the source account.")
	}
	if to == nil {
		return NewValidationError("to_account_id", "Destination account not found.")
	}
	if to.UserID != dto.UserID {
		return NewValidationError("to_account_id", "You do not own the destination account. Account-to-account trades must be between your own accounts.")
	}
	if to.ID == from.ID {
		return NewValidationError("to_account_id", "Cannot trade between the same account.")
	}
	if !from.IsActive() {
		return NewValidationError("from_account_id", "Source account is not active.")
	}
	if !to.IsActive() {
		return NewValidationError("to_account_id", "Destination account is not active.")
	}
	if from.Currency != dto.FromCurrency {
		return NewValidationError("from_currency", "Currency does not match source account currency.")
	}
	if to.Currency != dto.ToCurrency {
		return NewValidationError("to_currency", "Currency does not match destination account currency.")
	}
	if !from.HasSufficientBalance(dto.FromAmount) {
		return NewValidationError("from_amount", "Insufficient balance in source account.")
	}
	return nil
}
