package pkg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a hex encoded 20 byte account address. The zero address
// parses successfully; callers that forbid it check IsZeroAddress.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}

	return common.HexToAddress(address), nil
}

func IsZeroAddress(address common.Address) bool {
	return address == (common.Address{})
}
