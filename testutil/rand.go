package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns empty string
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

// RandomAddress returns a random non-zero account address
func RandomAddress() common.Address {
	for {
		var b [common.AddressLength]byte
		for i := range b {
			b[i] = gofakeit.Uint8()
		}
		if addr := common.BytesToAddress(b[:]); addr != (common.Address{}) {
			return addr
		}
	}
}

// RandomAmount returns a random amount in [1, limit]
func RandomAmount(limit uint64) math.Uint {
	return math.NewUint(gofakeit.Uint64()%limit + 1)
}
