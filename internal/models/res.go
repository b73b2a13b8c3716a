package models

type ApiResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Page    int                 `json:"page,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Total   int                 `json:"total,omitempty"`
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Success: true,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(err string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
	}
}

func FieldErrorResponse(err string, fields map[string][]string) ApiResponse {
	return ApiResponse{
		Success: false,
		Error:   err,
		Fields:  fields,
	}
}

// PaginatedResponse reports page as the 1-based page derived from offset and limit.
func PaginatedResponse(data interface{}, offset, limit, total int) ApiResponse {
	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return ApiResponse{
		Success: true,
		Data:    data,
		Page:    page,
		Limit:   limit,
		Total:   total,
	}
}
