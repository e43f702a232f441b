package handler

import (
	"time"

	"github.com/yndnr/pointerd/internal/core/session"
	"github.com/yndnr/pointerd/internal/infra/buildinfo"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// HealthResponse is the response body for GET /health and GET /ready.
type HealthResponse struct {
	Status   string         `json:"status"`
	Time     string         `json:"time"`
	Build    buildinfo.Info `json:"build"`
	Listen   string         `json:"listen,omitempty"`
	Sessions int            `json:"sessions"`
}

// MoveRequest is the request body for POST /v1/pointer/move.
type MoveRequest struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// MoveResponse is the response body for POST /v1/pointer/move.
type MoveResponse struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// ClickRequest is the request body for POST /v1/pointer/click.
type ClickRequest struct {
	Kind string `json:"kind"`
}

// ClickResponse is the response body for POST /v1/pointer/click.
type ClickResponse struct {
	Kind     string `json:"kind"`
	Sessions int    `json:"sessions"`
}

// ListSessionsResponse is the response body for GET /v1/sessions.
type ListSessionsResponse struct {
	Items []session.Info `json:"items"`
	Total int            `json:"total"`
}
