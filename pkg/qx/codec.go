package qx

import (
	"encoding/binary"
	"fmt"
)

// AssetID packs a symbol into the contract's asset name field: UTF-8
// bytes zero-padded to 8 and reinterpreted as a little-endian int64.
// The packing is deterministic, so equality of ids follows equality of
// symbols for anything that fits.
func AssetID(symbol string) (int64, error) {
	if len(symbol) > MaxSymbolBytes {
		return 0, fmt.Errorf("%w: %q is %d bytes", ErrSymbolTooLong, symbol, len(symbol))
	}
	var buf [MaxSymbolBytes]byte
	copy(buf[:], symbol)
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// OrderPayload is the QX contract input for the four order operations.
type OrderPayload struct {
	Issuer         string
	AssetName      int64
	Price          int64
	NumberOfShares int64
}

// TotalAmount is the escrow a bid must carry: price times shares.
func (p OrderPayload) TotalAmount() (int64, error) {
	if p.Price == 0 || p.NumberOfShares == 0 {
		return 0, nil
	}
	total := p.Price * p.NumberOfShares
	if total/p.NumberOfShares != p.Price {
		return 0, ErrAmountOverflow
	}
	return total, nil
}

// BuildOrderPayload constructs the contract payload for one order.
// Validation upstream is not trusted: non-positive price or quantity is
// rejected here rather than silently coerced.
func BuildOrderPayload(issuer, symbol string, price, quantity int64) (OrderPayload, error) {
	if price <= 0 || quantity <= 0 {
		return OrderPayload{}, fmt.Errorf("%w: price=%d quantity=%d", ErrInvalidOrderParams, price, quantity)
	}
	assetName, err := AssetID(symbol)
	if err != nil {
		return OrderPayload{}, err
	}
	return OrderPayload{
		Issuer:         issuer,
		AssetName:      assetName,
		Price:          price,
		NumberOfShares: quantity,
	}, nil
}

// UnsignedTransaction carries the fields of an exchange transaction that
// vary by order action. Binary layout and signing belong to the external
// crypto module; this side only decides what goes in the fields.
type UnsignedTransaction struct {
	Source      string
	Destination string
	Amount      int64
	Tick        uint32
	InputType   OrderAction
	Payload     OrderPayload
}

// SignedTransaction is the opaque result of the external signer: the
// fully encoded transaction package, ready for broadcast.
type SignedTransaction struct {
	Raw []byte
}

// BuildOrderTransaction assembles the unsigned transaction for an order
// action. Only AddBid moves value: it escrows price*quantity in qu. The
// other three actions carry zero.
func BuildOrderTransaction(sender string, targetTick uint32, payload OrderPayload, action OrderAction) (UnsignedTransaction, error) {
	if !action.IsOrder() {
		return UnsignedTransaction{}, fmt.Errorf("%w: %d", ErrInvalidAction, action)
	}

	var amount int64
	if action == AddBid {
		total, err := payload.TotalAmount()
		if err != nil {
			return UnsignedTransaction{}, err
		}
		amount = total
	}

	return UnsignedTransaction{
		Source:      sender,
		Destination: ContractAddress,
		Amount:      amount,
		Tick:        targetTick,
		InputType:   action,
		Payload:     payload,
	}, nil
}
