package qx

import "errors"

var (
	// ErrUnknownAsset means the symbol is not in the registry.
	ErrUnknownAsset = errors.New("qx: unknown asset")

	// ErrSymbolTooLong means the symbol does not fit the contract's
	// 8-byte asset name field. The contract would silently truncate;
	// we refuse instead.
	ErrSymbolTooLong = errors.New("qx: asset symbol exceeds 8 bytes")

	// ErrInvalidOrderParams means price or quantity is non-positive.
	ErrInvalidOrderParams = errors.New("qx: invalid order parameters")

	// ErrAmountOverflow means price*quantity does not fit an int64.
	ErrAmountOverflow = errors.New("qx: order amount overflows int64")

	// ErrInvalidAction means the input type is not an order operation.
	ErrInvalidAction = errors.New("qx: invalid order action")
)
