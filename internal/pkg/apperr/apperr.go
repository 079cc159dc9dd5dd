package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 錯誤分類，決定呼叫端如何呈現
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error 業務錯誤，Code 為穩定識別字
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 以 Code 比對，讓 errors.Is 可以對 sentinel 判斷
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrValidation           = &Error{Kind: Validation, Code: "validation_failed"}
	ErrNotFound             = &Error{Kind: NotFound, Code: "not_found"}
	ErrProductNotFound      = &Error{Kind: NotFound, Code: "product_not_found"}
	ErrNotAvailableInStore  = &Error{Kind: Conflict, Code: "not_available_in_store"}
	ErrInsufficientStock    = &Error{Kind: Conflict, Code: "insufficient_stock"}
	ErrDuplicateLineItem    = &Error{Kind: Conflict, Code: "duplicate_line_item"}
	ErrDuplicateName        = &Error{Kind: Conflict, Code: "duplicate_name"}
	ErrStoreAlreadyPromoted = &Error{Kind: Conflict, Code: "store_already_promoted"}
	ErrProductUnavailable   = &Error{Kind: Conflict, Code: "product_unavailable"}
	ErrInvalidOrderState    = &Error{Kind: InvalidState, Code: "invalid_order_state"}
	ErrEmptyOrder           = &Error{Kind: InvalidState, Code: "empty_order"}
)

// New 以 sentinel 為樣板建立帶訊息的錯誤
func New(sentinel *Error, format string, args ...any) *Error {
	return &Error{
		Kind:    sentinel.Kind,
		Code:    sentinel.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 同 New，並保留底層錯誤
func Wrap(sentinel *Error, err error, format string, args ...any) *Error {
	e := New(sentinel, format, args...)
	e.Err = err
	return e
}

// KindOf 非 *Error 的錯誤一律視為 Internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 給外層 http handler 使用的對應
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
