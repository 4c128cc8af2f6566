package ledger

import (
	"math/big"

	"cosmossdk.io/math"
)

const (
	// MaxFeeBps is the fee ceiling, 10%.
	MaxFeeBps uint64 = 1000
	// BpsDenominator is 100% in basis points.
	BpsDenominator uint64 = 10_000
)

// ComputeFee splits amount into the protocol fee and the net amount credited
// to the builder. The fee is floor(amount*feeBps/10000) and net always equals
// amount-fee, so net+fee == amount exactly.
func ComputeFee(amount math.Uint, feeBps uint64) (fee, net math.Uint, err error) {
	if feeBps > MaxFeeBps {
		return math.Uint{}, math.Uint{}, ErrFeeTooHigh
	}

	product := new(big.Int).Mul(amount.BigInt(), new(big.Int).SetUint64(feeBps))
	if product.BitLen() > MaxBitLen {
		return math.Uint{}, math.Uint{}, ErrOverflow
	}

	fee = math.NewUintFromBigInt(product.Quo(product, new(big.Int).SetUint64(BpsDenominator)))
	net, err = subChecked(amount, fee)
	if err != nil {
		return math.Uint{}, math.Uint{}, err
	}

	return fee, net, nil
}

func validateFeeBps(bps uint64) error {
	if bps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	return nil
}
