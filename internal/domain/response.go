package domain

import "time"

// Response is the envelope used at API boundaries.
type Response struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data"`
	Message    string    `json:"message"`
	Errors     []string  `json:"errors"`
	StatusCode int       `json:"statusCode,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Success builds a successful response carrying data.
func Success(data any, message string, now time.Time) Response {
	return Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Errors:    []string{},
		Timestamp: now.UTC(),
	}
}

// Failure builds a failed response. Data is always null.
func Failure(message string, errs []string, statusCode int, now time.Time) Response {
	if errs == nil {
		errs = []string{}
	}
	return Response{
		Success:    false,
		Message:    message,
		Errors:     errs,
		StatusCode: statusCode,
		Timestamp:  now.UTC(),
	}
}
