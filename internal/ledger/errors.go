package ledger

import "errors"

// Fatal outcomes. The call reverts and no state changes.
var (
	ErrUnauthorized        = errors.New("caller role not authorized")
	ErrNotOwner            = errors.New("caller is not the contract owner")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrEmptyName           = errors.New("name must not be empty")
	ErrProductNotFound     = errors.New("product not found")
	ErrPaymentRequired     = errors.New("payment required to view product")
	ErrInsufficientPayment = errors.New("payment below viewing fee")
	ErrInvalidFee          = errors.New("fee must not be negative")
)

// Reason returns the revert reason string the deployed contract uses for err,
// or "" when err is not a ledger error.
func Reason(err error) string {
	for reason, e := range reasons {
		if errors.Is(err, e) {
			return reason
		}
	}
	return ""
}

// FromReason maps a revert reason back to its sentinel error.
func FromReason(reason string) (error, bool) {
	err, ok := reasons[reason]
	return err, ok
}

var reasons = map[string]error{
	"Unauthorized":        ErrUnauthorized,
	"NotOwner":            ErrNotOwner,
	"InvalidRole":         ErrInvalidRole,
	"InvalidAddress":      ErrInvalidAddress,
	"EmptyName":           ErrEmptyName,
	"ProductNotFound":     ErrProductNotFound,
	"PaymentRequired":     ErrPaymentRequired,
	"InsufficientPayment": ErrInsufficientPayment,
	"InvalidFee":          ErrInvalidFee,
}
