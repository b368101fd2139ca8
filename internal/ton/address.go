package ton

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// User-friendly address is 36 bytes:
// 1 byte flags + 1 byte workchain + 32 bytes hash + 2 bytes CRC
const friendlyLen = 36

var (
	ErrEmptyAddress   = errors.New("empty address")
	ErrAddressFormat  = errors.New("unknown address format")
	ErrAddressCRC     = errors.New("address checksum mismatch")
	ErrAddressLength  = errors.New("invalid address length")
	ErrWorkchainRange = errors.New("workchain out of range")
)

// Address is a parsed destination address.
type Address struct {
	Workchain int8
	Hash      [32]byte
}

// Raw renders the address as workchain:hex.
func (a Address) Raw() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Hash[:]))
}

// ParseAddress accepts raw (0:hex, -1:hex) and user-friendly (48 chars,
// base64 or base64url) forms.
func ParseAddress(address string) (Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Address{}, ErrEmptyAddress
	}
	if i := strings.IndexByte(address, ':'); i > 0 {
		return parseRaw(address[:i], address[i+1:])
	}
	if len(address) == 48 {
		return parseFriendly(address)
	}
	return Address{}, ErrAddressFormat
}

// ValidateAddress checks if the TON address format is valid
func ValidateAddress(address string) bool {
	_, err := ParseAddress(address)
	return err == nil
}

// NormalizeAddress converts address to raw format
func NormalizeAddress(address string) (string, error) {
	a, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	return a.Raw(), nil
}

func parseRaw(wc, hash string) (Address, error) {
	n, err := strconv.ParseInt(wc, 10, 8)
	if err != nil || (n != 0 && n != -1) {
		return Address{}, ErrWorkchainRange
	}
	b, err := hex.DecodeString(hash)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address format: %w", err)
	}
	if len(b) != 32 {
		return Address{}, ErrAddressLength
	}
	a := Address{Workchain: int8(n)}
	copy(a.Hash[:], b)
	return a, nil
}

func parseFriendly(s string) (Address, error) {
	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Address{}, fmt.Errorf("invalid address format: %w", err)
		}
	}
	if len(decoded) != friendlyLen {
		return Address{}, ErrAddressLength
	}

	want := uint16(decoded[34])<<8 | uint16(decoded[35])
	if crc16(decoded[:34]) != want {
		return Address{}, ErrAddressCRC
	}

	a := Address{Workchain: int8(decoded[1])}
	if a.Workchain != 0 && a.Workchain != -1 {
		return Address{}, ErrWorkchainRange
	}
	copy(a.Hash[:], decoded[2:34])
	return a, nil
}

// crc16 is CRC-16/XMODEM as used by user-friendly addresses.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
