package ecode

import (
	"fmt"
)

const (
	emptyMsg       = "empty"
	requiredMsg    = "required"
	invalidMsg     = "invalid"
	failedMsg      = "failed"
	notExistMsg    = "does not exist"
	expiredMsg     = "expired"
	outOfRangeMsg  = "out of range"
	unsupportedMsg = "not supported"
)

func join(msg string, k []string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], msg)
	}
	return msg
}

// FieldIsEmpty returns field empty message
func FieldIsEmpty(k ...string) string {
	return join(emptyMsg, k)
}

// FieldIsRequired returns field required message
func FieldIsRequired(k ...string) string {
	return join(requiredMsg, k)
}

// FieldIsInvalid returns field invalid message
func FieldIsInvalid(k ...string) string {
	return join(invalidMsg, k)
}

// OutOfRange returns field out of range message
func OutOfRange(k ...string) string {
	return join(outOfRangeMsg, k)
}

// Failed returns failed message
func Failed(k ...string) string {
	return join(failedMsg, k)
}

// NotExist returns not exist message
func NotExist(k ...string) string {
	return join(notExistMsg, k)
}

// NotSupported returns not supported message
func NotSupported(k ...string) string {
	return join(unsupportedMsg, k)
}

// Expired returns expired message
func Expired(k ...string) string {
	return join(expiredMsg, k)
}
