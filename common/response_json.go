package common

import (
	"encoding/json"
	"net/http"
)

// Status is the body sent with every non-2xx response.
type Status struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func NewStatus(code int, reason string) Status {
	return Status{Code: code, Reason: reason}
}

// OutputJSON encodes data to JSON and writes it to the http.ResponseWriter
func OutputJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// OutputStatus writes a Status with the given code as the response.
func OutputStatus(w http.ResponseWriter, status int, reason string) error {
	return OutputJSON(w, status, NewStatus(status, reason))
}
