package middleware

// gin context keys
const (
	KeyRequestID = "request_id"
	KeyClientID  = "client_id"
	KeyUserID    = "user_id"
	KeyWorkspace = "workspace"
)
