package errors

import stdErrors "errors"

// ErrorDump captures a flattened view of an error chain for log output.
type ErrorDump struct {
	Code       string
	TopMessage string
	Chain      []string
}

// Dump walks the unwrap chain collecting every message in order.
func Dump(err error) ErrorDump {
	dump := ErrorDump{}
	if err == nil {
		return dump
	}
	dump.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		dump.Code = string(typed.Code())
	}
	for current := err; current != nil; current = stdErrors.Unwrap(current) {
		dump.Chain = append(dump.Chain, current.Error())
	}
	return dump
}
