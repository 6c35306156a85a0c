package core

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ApiResponse is the envelope of every mutation and query result.
type ApiResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Data     interface{}       `json:"data,omitempty"`
}

func Success(message string, data ...interface{}) ApiResponse {
	res := ApiResponse{Status: StatusSuccess, Message: message}
	if len(data) > 0 {
		res.Data = data[0]
	}
	return res
}

func Failure(message string) ApiResponse {
	return ApiResponse{Status: StatusError, Message: message}
}
