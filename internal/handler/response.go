package handler

import "github.com/medifast/claims-api/internal/model"

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
}

// ListMeta describes the window a list response covers.
type ListMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewPaginatedResponse wraps a listing with its pagination meta. The
// pagination is normalized first so the reported page matches what the
// repository actually used.
func NewPaginatedResponse(data interface{}, total int64, p model.Pagination) *Response {
	p.Normalize()
	return &Response{
		Status: "success",
		Data:   data,
		Meta: &ListMeta{
			Total:    total,
			Page:     p.Page,
			PageSize: p.PageSize,
		},
	}
}
