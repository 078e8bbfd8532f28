package wallet

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for anything that is not a 20-byte hex address
// or that carries a wrong mixed-case checksum.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Address is an EIP-55 checksummed account address.
type Address string

// ParseAddress validates s and returns its checksummed form. All-lower and
// all-upper hex are accepted as unchecksummed input.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", ErrInvalidAddress
	}
	if !common.IsHexAddress(raw) {
		return "", ErrInvalidAddress
	}

	sum := common.HexToAddress(raw).Hex()
	digits := raw[2:]
	if digits != strings.ToLower(digits) && digits != strings.ToUpper(digits) && "0x"+digits != sum {
		return "", ErrInvalidAddress
	}
	return Address(sum), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Common converts a to its go-ethereum form.
func (a Address) Common() common.Address { return common.HexToAddress(string(a)) }

func (a Address) String() string { return string(a) }

// IsZero reports whether a is unset.
func (a Address) IsZero() bool { return a == "" }

// Equal compares two addresses ignoring case.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// Short renders the address as 0x1234...abcd.
func (a Address) Short() string {
	if len(a) < 10 {
		return string(a)
	}
	return string(a[:6]) + "..." + string(a[len(a)-4:])
}
