package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNoEndpoints  = errors.New("no rpc endpoints configured")
	ErrNoCustodian  = errors.New("custodian key unavailable")
	ErrBadReference = errors.New("malformed transaction reference")
	ErrBadAddress   = errors.New("malformed address")
)

// TxStatus is the disposition of a deposit reference lookup.
type TxStatus int

const (
	// StatusUnknown: not indexed yet, or the lookup itself failed.
	StatusUnknown TxStatus = iota
	StatusConfirmed
	StatusFailed
)

const (
	transferGasLimit = 21000
	weiDecimals      = 18
)

// Client is the settlement side's view of the chain: look up a deposit
// reference and broadcast a payout. Every call is bounded by
// callTimeout; nothing ever waits for block finality.
type Client struct {
	pool        *Pool
	custodian   *Custodian
	chainID     *big.Int
	callTimeout time.Duration
	logger      *zap.Logger
}

func NewClient(pool *Pool, custodian *Custodian, chainID int64, callTimeout time.Duration, logger *zap.Logger) *Client {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Client{
		pool:        pool,
		custodian:   custodian,
		chainID:     big.NewInt(chainID),
		callTimeout: callTimeout,
		logger:      logger,
	}
}

func (c *Client) CustodianAvailable() bool {
	return c != nil && c.custodian.Available()
}

func (c *Client) CustodianAddress() string {
	if c == nil || !c.custodian.Available() {
		return ""
	}
	return c.custodian.Address().Hex()
}

func (c *Client) EndpointCount() int {
	if c == nil {
		return 0
	}
	return c.pool.Size()
}

// TransferStatus resolves the receipt of the submitted deposit tx.
// "Not indexed yet" and "lookup failed" both map to StatusUnknown; the
// caller decides what to do with ambiguity.
func (c *Client) TransferStatus(ctx context.Context, ref string) (TxStatus, error) {
	ref = strings.TrimSpace(ref)
	if !isTxHash(ref) {
		return StatusUnknown, ErrBadReference
	}

	cl, url, err := c.pool.Pick(ctx)
	if err != nil {
		return StatusUnknown, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	receipt, err := cl.TransactionReceipt(callCtx, common.HexToHash(ref))
	if errors.Is(err, ethereum.NotFound) {
		return StatusUnknown, nil
	}
	if err != nil {
		c.pool.MarkFailure(url, err)
		return StatusUnknown, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return StatusFailed, nil
	}
	return StatusConfirmed, nil
}

// SendPayout broadcasts one native-value transfer custodian→player and
// returns the tx hash as soon as the node accepts it for broadcast.
func (c *Client) SendPayout(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !c.custodian.Available() {
		return "", ErrNoCustodian
	}
	to = strings.TrimSpace(to)
	if !common.IsHexAddress(to) {
		return "", ErrBadAddress
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return "", fmt.Errorf("payout amount must be positive, got %s", amount.String())
	}

	cl, url, err := c.pool.Pick(ctx)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	from := c.custodian.Address()
	nonce, err := cl.PendingNonceAt(callCtx, from)
	if err != nil {
		c.pool.MarkFailure(url, err)
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := cl.SuggestGasPrice(callCtx)
	if err != nil {
		c.pool.MarkFailure(url, err)
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	dest := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &dest,
		Value:    amount.Shift(weiDecimals).BigInt(),
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.custodian.key)
	if err != nil {
		return "", fmt.Errorf("sign payout: %w", err)
	}

	if err := cl.SendTransaction(callCtx, signed); err != nil {
		c.pool.MarkFailure(url, err)
		return "", fmt.Errorf("broadcast payout: %w", err)
	}

	hash := signed.Hash().Hex()
	if c.logger != nil {
		c.logger.Info("payout broadcast",
			zap.String("to", dest.Hex()),
			zap.String("amount", amount.String()),
			zap.String("tx", hash),
		)
	}
	return hash, nil
}

// ValidAddress reports whether s parses as a hex account address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

func isTxHash(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
