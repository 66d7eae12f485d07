package utils

import "errors"

// ErrorRecordNotFound is returned by tenant-scoped lookups when the row
// does not exist or belongs to another organization. Callers must not be
// able to distinguish the two cases.
var ErrorRecordNotFound = errors.New("record not found")
