package service

import (
	"fmt"
)

// Verify Interface Compliance
var _ error = (*Err)(nil)

// Err defines service errors.
type Err struct {
	Code    int64  `json:"code"`
	Message string `json:"error"`
}

func (e Err) Enrich(message string) Err {
	return Err{
		Code:    e.Code,
		Message: fmt.Sprintf("%s: %s", e.Message, message),
	}
}

func (e Err) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

var (
	ErrBlockNotFound  = Err{Code: 404, Message: "block not found"}
	ErrTxNotFound     = Err{Code: 404, Message: "transaction not found"}
	ErrAssetNotFound  = Err{Code: 404, Message: "asset not found"}
	ErrStreamNotFound = Err{Code: 404, Message: "sync stream not found"}
	InternalError     = Err{Code: 500, Message: "internal error"}
)
