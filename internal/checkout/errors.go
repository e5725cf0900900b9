package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrNotCustomer         = errors.New("customer access required")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrSessionOwnership    = errors.New("payment session does not belong to this user")
	ErrInvalidTransition   = errors.New("invalid checkout state transition")
	ErrGateway             = errors.New("payment gateway error")
)

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// InsufficientStockError names the first cart line that cannot be covered.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s. available: %d, requested: %d", e.Name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// GatewayError carries the payment provider's message through to the caller.
type GatewayError struct {
	Op  string
	Msg string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: %s", e.Msg)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

func gatewayError(op string, err error) error {
	var ge *GatewayError
	if errors.As(err, &ge) {
		if ge.Op == "" {
			ge.Op = op
		}
		return ge
	}
	return &GatewayError{Op: op, Msg: err.Error(), Err: err}
}
