package ledger

import "errors"

var (
	ErrInvalidQuantity   = errors.New("la cantidad debe ser un número positivo")
	ErrInsufficientStock = errors.New("no hay suficiente stock")
	ErrItemNotFound      = errors.New("insumo no encontrado")
	ErrVersionConflict   = errors.New("el insumo fue modificado por otra operación")
	ErrLockNotObtained   = errors.New("el insumo está siendo ajustado por otra operación")
)

// outcome is the metrics label for an adjustment result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	default:
		return "error"
	}
}
