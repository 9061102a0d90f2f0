// Package chain wraps the EVM side of reward payouts: one JSON-RPC client per
// configured chain, native and ERC-20 transfers signed with the payer key, and
// amount conversion between human token units and wei.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// ZeroAddress marks a native-currency payout instead of an ERC-20 transfer.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NativeTransferGasLimit is the fixed gas limit for plain value transfers.
const NativeTransferGasLimit = 21000

const erc20ABIJSON = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

// Transferer is the payout workflow's view of the chain layer.
type Transferer interface {
	EnsureChain(ctx context.Context, chainID int64) error
	TransferNative(ctx context.Context, chainID int64, to string, amount float64) (string, error)
	TransferToken(ctx context.Context, chainID int64, tokenAddress, to string, amount float64) (string, error)
}

// SymbolReader resolves ERC-20 symbols for display.
type SymbolReader interface {
	TokenSymbol(ctx context.Context, chainID int64, tokenAddress string) (string, error)
}

// IsValidAddress reports whether s is a well-formed hex address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ToWei converts a human token amount to base units for the given decimals.
func ToWei(amount float64, decimals int32) *big.Int {
	return decimal.NewFromFloat(amount).Mul(decimal.New(1, decimals)).BigInt()
}

// Payer signs and sends reward transfers from a single hot wallet across the
// configured chains.
type Payer struct {
	key      *ecdsa.PrivateKey
	from     common.Address
	erc20ABI abi.ABI
	clients  map[int64]*ethclient.Client
}

// NewPayer dials every configured provider. A provider that fails to dial is
// skipped with a warning so one bad endpoint does not take the server down.
func NewPayer(privateKeyHex string, providers map[int64]string) (*Payer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("payer key: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("erc20 abi: %w", err)
	}
	p := &Payer{
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		erc20ABI: parsed,
		clients:  make(map[int64]*ethclient.Client),
	}
	for chainID, url := range providers {
		client, err := ethclient.Dial(url)
		if err != nil {
			log.Printf("[chain] provider for chain %d unavailable: %v", chainID, err)
			continue
		}
		p.clients[chainID] = client
	}
	return p, nil
}

// From returns the payer wallet address.
func (p *Payer) From() string { return p.from.Hex() }

func (p *Payer) client(chainID int64) (*ethclient.Client, error) {
	c, ok := p.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("no provider configured for chain %d", chainID)
	}
	return c, nil
}

// EnsureChain verifies a provider for chainID is configured and that the node
// actually reports that chain id.
func (p *Payer) EnsureChain(ctx context.Context, chainID int64) error {
	client, err := p.client(chainID)
	if err != nil {
		return err
	}
	reported, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain %d: %w", chainID, err)
	}
	if reported.Int64() != chainID {
		return fmt.Errorf("provider for chain %d reports chain %s", chainID, reported)
	}
	return nil
}

// TransferNative sends amount in the chain's native currency with the fixed
// 21000 gas limit and a live gas price.
func (p *Payer) TransferNative(ctx context.Context, chainID int64, to string, amount float64) (string, error) {
	client, err := p.client(chainID)
	if err != nil {
		return "", err
	}
	nonce, err := client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	tx := types.NewTransaction(nonce, common.HexToAddress(to), ToWei(amount, 18), NativeTransferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(chainID)), p.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// TransferToken sends an ERC-20 transfer, scaling amount by the token's own
// decimals.
func (p *Payer) TransferToken(ctx context.Context, chainID int64, tokenAddress, to string, amount float64) (string, error) {
	client, err := p.client(chainID)
	if err != nil {
		return "", err
	}
	token := common.HexToAddress(tokenAddress)
	decimals, err := p.tokenDecimals(ctx, client, token)
	if err != nil {
		return "", err
	}
	data, err := p.erc20ABI.Pack("transfer", common.HexToAddress(to), ToWei(amount, int32(decimals)))
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}
	nonce, err := client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{From: p.from, To: &token, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}
	tx := types.NewTransaction(nonce, token, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(chainID)), p.key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (p *Payer) tokenDecimals(ctx context.Context, client *ethclient.Client, token common.Address) (uint8, error) {
	data, err := p.erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals call: %w", err)
	}
	results, err := p.erc20ABI.Unpack("decimals", out)
	if err != nil || len(results) != 1 {
		return 0, fmt.Errorf("decimals decode: %w", err)
	}
	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals decode: unexpected type %T", results[0])
	}
	return decimals, nil
}

// TokenSymbol reads an ERC-20 symbol.
func (p *Payer) TokenSymbol(ctx context.Context, chainID int64, tokenAddress string) (string, error) {
	client, err := p.client(chainID)
	if err != nil {
		return "", err
	}
	token := common.HexToAddress(tokenAddress)
	data, err := p.erc20ABI.Pack("symbol")
	if err != nil {
		return "", err
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("symbol call: %w", err)
	}
	results, err := p.erc20ABI.Unpack("symbol", out)
	if err != nil || len(results) != 1 {
		return "", fmt.Errorf("symbol decode: %w", err)
	}
	symbol, ok := results[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol decode: unexpected type %T", results[0])
	}
	return symbol, nil
}
