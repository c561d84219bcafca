package handler

import "github.com/meterbill/backend/internal/interfaces/http/dto"

// APIResponse is the typed form of dto.Response used in the OpenAPI annotations.
// List endpoints fill Meta with the paging totals.
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the body of every 4xx and 5xx answer
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
