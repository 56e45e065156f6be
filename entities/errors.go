package entities

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")
var ErrNoLedgerProfile = errors.New("session has no ledger profile")
