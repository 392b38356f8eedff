package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Custodian wraps the house signing credential. It is constructed once
// in main from the env-provided key and passed explicitly to whatever
// needs it; a nil *Custodian means payouts fall back to manual handling.
type Custodian struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewCustodian parses a hex-encoded secp256k1 private key. An empty key
// yields (nil, nil): the service still settles rounds, it just cannot
// broadcast payouts.
func NewCustodian(hexKey string) (*Custodian, error) {
	hexKey = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if hexKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse custodian key: %w", err)
	}
	return &Custodian{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (c *Custodian) Address() common.Address {
	if c == nil {
		return common.Address{}
	}
	return c.address
}

func (c *Custodian) Available() bool {
	return c != nil && c.key != nil
}
