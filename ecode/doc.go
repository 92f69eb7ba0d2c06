// Package ecode classifies failures raised while executing metric queries.
//
// Every failure carries a Kind (validation, provider, timeout, strategy not
// found), the operation that raised it and optional call context. Sentinel
// values make kinds comparable with errors.Is:
//
//	if errors.Is(err, ecode.ErrTimeout) {
//	    // retry later
//	}
//
// The message helpers (FieldIsRequired, FieldIsInvalid, NotExist, ...) keep
// user facing texts uniform across packages.
package ecode
