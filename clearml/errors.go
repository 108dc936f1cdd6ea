package clearml

import "fmt"

// ServiceError reports a failed call to the tracking server: transport
// failure, authentication failure, an unknown task or an unreadable reply.
type ServiceError struct {
	Endpoint      string
	StatusCode    int
	ResultCode    int
	ResultSubcode int
	Message       string
	Err           error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("clearml %s", e.Endpoint)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": http status %d", e.StatusCode)
	}
	if e.ResultCode != 0 {
		msg += fmt.Sprintf(": result code %d/%d", e.ResultCode, e.ResultSubcode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
