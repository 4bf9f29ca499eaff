// Package collaborator declares the contracts for the domain operations
// this core calls but does not implement: bug, team, user, comment and
// file CRUD over whatever persistence the hosting system provides.
package collaborator

// Result is the uniform return shape of every collaborator call.
type Result struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// Ok builds a successful result around a data payload.
func Ok(message string, data map[string]interface{}) *Result {
	return &Result{Success: true, Message: message, Data: data}
}

// Fail builds a failed result.
func Fail(message, errDetail string) *Result {
	return &Result{Success: false, Message: message, Error: errDetail}
}
