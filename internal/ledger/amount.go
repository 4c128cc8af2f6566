package ledger

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
)

// MaxBitLen bounds every value quantity, the same width as an EVM word.
const MaxBitLen = 256

func addChecked(a, b math.Uint) (math.Uint, error) {
	sum := new(big.Int).Add(a.BigInt(), b.BigInt())
	if sum.BitLen() > MaxBitLen {
		return math.Uint{}, ErrOverflow
	}

	return math.NewUintFromBigInt(sum), nil
}

func subChecked(a, b math.Uint) (math.Uint, error) {
	if a.LT(b) {
		return math.Uint{}, ErrUnderflow
	}

	return a.Sub(b), nil
}

func incChecked(n uint64) (uint64, error) {
	if n == ^uint64(0) {
		return 0, ErrOverflow
	}

	return n + 1, nil
}

// ParseAmount parses a base-10 unsigned amount of at most MaxBitLen bits.
func ParseAmount(s string) (math.Uint, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return math.Uint{}, fmt.Errorf("invalid amount %q", s)
	}
	if i.Sign() < 0 {
		return math.Uint{}, fmt.Errorf("negative amount %q", s)
	}
	if i.BitLen() > MaxBitLen {
		return math.Uint{}, fmt.Errorf("amount %q: %w", s, ErrOverflow)
	}

	return math.NewUintFromBigInt(i), nil
}
