package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of the Ethereum RPC surface the client depends on.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Event is a decoded contract log with all field values normalized to strings.
type Event struct {
	Name   string
	Fields map[string]string
}

// Receipt summarises an included transaction. Numeric fields are decimal
// strings; ledger integers can exceed native widths.
type Receipt struct {
	TxHash      string
	BlockNumber string
	GasUsed     string
	Events      []Event
}

// Record is the read-only projection of an on-ledger ESG record.
type Record struct {
	ID           string `json:"id"`
	Owner        string `json:"company"`
	OwnerName    string `json:"companyName"`
	Timestamp    int64  `json:"timestamp"`
	DataType     string `json:"dataType"`
	Value        string `json:"value"`
	Unit         string `json:"unit"`
	DocumentHash string `json:"verificationDocHash"`
	Verifier     string `json:"verifier"`
	Verified     bool   `json:"isVerified"`
	Comments     string `json:"comments"`
}

// Company is the read-only projection of an on-ledger company registration.
type Company struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Registration string `json:"registrationId"`
	RegisteredAt int64  `json:"registrationTimestamp"`
	Registered   bool   `json:"isRegistered"`
}

// Config captures the settings required to construct a Client.
type Config struct {
	Backend      Backend
	ContractAddr string
	ChainID      uint64
	Keystore     Keystore
	Logger       *slog.Logger
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// Client is a thin accessor to the ESGRegistry contract. Reads are
// side-effect free and safe to retry; Submit is not idempotent and is never
// retried internally.
type Client struct {
	backend      Backend
	contract     common.Address
	registry     abi.ABI
	chainID      *big.Int
	keystore     Keystore
	logger       *slog.Logger
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("ledger rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// NewClient constructs a Client bound to one contract deployment.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("ledger: backend required")
	}
	if !common.IsHexAddress(cfg.ContractAddr) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.ContractAddr)
	}
	if cfg.ChainID == 0 {
		return nil, fmt.Errorf("ledger: chain id required")
	}
	registry, err := RegistryABI()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 90 * time.Second
	}
	return &Client{
		backend:      cfg.Backend,
		contract:     common.HexToAddress(cfg.ContractAddr),
		registry:     registry,
		chainID:      new(big.Int).SetUint64(cfg.ChainID),
		keystore:     cfg.Keystore,
		logger:       logger,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}, nil
}

// ContractAddress reports the bound contract address.
func (c *Client) ContractAddress() string {
	return strings.ToLower(c.contract.Hex())
}

// Contract reports the bound contract address in native form.
func (c *Client) Contract() common.Address {
	return c.contract
}

// Pack encodes a contract call for simulation or submission.
func (c *Client) Pack(method string, args ...interface{}) ([]byte, error) {
	input, err := c.registry.Pack(method, args...)
	if err != nil {
		return nil, Errorf(KindInternal, "pack %s: %v", method, err)
	}
	return input, nil
}

func (c *Client) read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.registry.Pack(method, args...)
	if err != nil {
		return nil, Errorf(KindInternal, "pack %s: %v", method, err)
	}
	output, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		return nil, normalizeReadError(fmt.Errorf("call %s: %w", method, err))
	}
	values, err := c.registry.Unpack(method, output)
	if err != nil {
		return nil, Errorf(KindInternal, "unpack %s: %v", method, err)
	}
	return values, nil
}

// Submit signs and sends a contract call from sender and waits for inclusion.
// Expiry of the wait window is reported as ledger unavailability: the
// transaction may still be included later.
func (c *Client) Submit(ctx context.Context, method, sender string, gasLimit uint64, gasPrice *big.Int, args ...interface{}) (*Receipt, error) {
	if c.keystore == nil {
		return nil, Errorf(KindInternal, "client has no keystore; submissions disabled")
	}
	key, err := c.keystore.Key(sender)
	if err != nil {
		return nil, NewError(KindValidation, "no signing key for sender", err)
	}
	input, err := c.registry.Pack(method, args...)
	if err != nil {
		return nil, Errorf(KindInternal, "pack %s: %v", method, err)
	}
	from := common.HexToAddress(sender)
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, normalizeSubmitError(fmt.Errorf("pending nonce: %w", err))
	}
	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return nil, Errorf(KindInternal, "sign %s: %v", method, err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, normalizeSubmitError(fmt.Errorf("send %s: %w", method, err))
	}
	return c.waitMined(ctx, signed.Hash())
}

func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(waitCtx, txHash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != gethtypes.ReceiptStatusSuccessful {
				return nil, Errorf(KindLedgerRevert, "transaction %s reverted", txHash.Hex())
			}
			return c.decodeReceipt(receipt), nil
		case errors.Is(err, ethereum.NotFound):
			// not yet included; keep polling
		case err != nil && waitCtx.Err() == nil:
			return nil, normalizeSubmitError(fmt.Errorf("fetch receipt: %w", err))
		}
		select {
		case <-waitCtx.Done():
			return nil, NewError(KindLedgerUnavailable, fmt.Sprintf("tx %s not included before deadline", txHash.Hex()), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) decodeReceipt(receipt *gethtypes.Receipt) *Receipt {
	out := &Receipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.String(),
		GasUsed:     new(big.Int).SetUint64(receipt.GasUsed).String(),
	}
	for _, lg := range receipt.Logs {
		if lg == nil || len(lg.Topics) == 0 {
			continue
		}
		// Other contracts touched by the same transaction can emit logs whose
		// signature collides with a registry event; only the bound deployment
		// speaks for the registry.
		if lg.Address != c.contract {
			continue
		}
		ev, err := c.registry.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}
		fields := make(map[string]interface{})
		if len(lg.Data) > 0 {
			if err := c.registry.UnpackIntoMap(fields, ev.Name, lg.Data); err != nil {
				c.logger.Warn("undecodable event payload", "event", ev.Name, "tx", out.TxHash, "err", err)
				continue
			}
		}
		if indexed := indexedArguments(ev.Inputs); len(indexed) > 0 && len(lg.Topics) > 1 {
			if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
				c.logger.Warn("undecodable event topics", "event", ev.Name, "tx", out.TxHash, "err", err)
				continue
			}
		}
		out.Events = append(out.Events, Event{Name: ev.Name, Fields: stringifyFields(fields)})
	}
	return out
}

func indexedArguments(inputs abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(inputs))
	for _, input := range inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	return indexed
}

func stringifyFields(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for name, value := range fields {
		out[name] = stringifyABIValue(value)
	}
	return out
}

// stringifyABIValue normalizes a decoded ABI value so no wide integer or
// dynamically-typed value escapes the client boundary.
func stringifyABIValue(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		return v.String()
	case common.Address:
		return strings.ToLower(v.Hex())
	case common.Hash:
		return strings.ToLower(v.Hex())
	case [32]byte:
		return "0x" + hex.EncodeToString(v[:])
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsRegistered reports whether the address holds an on-ledger registration.
func (c *Client) IsRegistered(ctx context.Context, address string) (bool, error) {
	values, err := c.read(ctx, MethodIsCompanyRegistered, common.HexToAddress(address))
	if err != nil {
		return false, err
	}
	registered, ok := values[0].(bool)
	if !ok {
		return false, Errorf(KindInternal, "unexpected isCompanyRegistered result shape")
	}
	return registered, nil
}

// GetRecord fetches one ledger record by its decimal identifier.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	id, err := parseRecordID(recordID)
	if err != nil {
		return nil, err
	}
	values, err := c.read(ctx, MethodGetRecord, id)
	if err != nil {
		return nil, err
	}
	if len(values) != 10 {
		return nil, Errorf(KindInternal, "unexpected getRecord result shape (%d values)", len(values))
	}
	record := &Record{ID: id.String()}
	record.Owner = stringifyABIValue(values[0])
	record.OwnerName, _ = values[1].(string)
	if record.Timestamp, err = bigToUnix(values[2]); err != nil {
		return nil, err
	}
	record.DataType, _ = values[3].(string)
	record.Value, _ = values[4].(string)
	record.Unit, _ = values[5].(string)
	record.DocumentHash = stringifyABIValue(values[6])
	record.Verifier = stringifyABIValue(values[7])
	record.Verified, _ = values[8].(bool)
	record.Comments, _ = values[9].(string)
	return record, nil
}

// GetRecordsByOwner lists the record identifiers owned by an address.
func (c *Client) GetRecordsByOwner(ctx context.Context, address string) ([]string, error) {
	values, err := c.read(ctx, MethodGetCompanyRecords, common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, Errorf(KindInternal, "unexpected getCompanyRecords result shape")
	}
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.String())
	}
	return ids, nil
}

// GetCompany fetches the on-ledger registration for an address.
func (c *Client) GetCompany(ctx context.Context, address string) (*Company, error) {
	values, err := c.read(ctx, MethodCompanies, common.HexToAddress(address))
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, Errorf(KindInternal, "unexpected companies result shape (%d values)", len(values))
	}
	company := &Company{}
	company.Name, _ = values[0].(string)
	company.Registration, _ = values[1].(string)
	company.Address = stringifyABIValue(values[2])
	if company.RegisteredAt, err = bigToUnix(values[3]); err != nil {
		return nil, err
	}
	company.Registered, _ = values[4].(bool)
	return company, nil
}

// TotalCompanies reports the ledger-wide participant count as a decimal string.
func (c *Client) TotalCompanies(ctx context.Context) (string, error) {
	return c.readCounter(ctx, MethodTotalCompanies)
}

// TotalRecords reports the ledger-wide record count as a decimal string.
func (c *Client) TotalRecords(ctx context.Context) (string, error) {
	return c.readCounter(ctx, MethodTotalRecords)
}

func (c *Client) readCounter(ctx context.Context, method string) (string, error) {
	values, err := c.read(ctx, method)
	if err != nil {
		return "", err
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return "", Errorf(KindInternal, "unexpected %s result shape", method)
	}
	return count.String(), nil
}

func parseRecordID(recordID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(recordID), 10)
	if !ok || id.Sign() < 0 {
		return nil, Errorf(KindValidation, "invalid record id %q", recordID)
	}
	return id, nil
}

func bigToUnix(value interface{}) (int64, error) {
	ts, ok := value.(*big.Int)
	if !ok {
		return 0, Errorf(KindInternal, "unexpected timestamp type %T", value)
	}
	if !ts.IsInt64() {
		return 0, Errorf(KindInternal, "timestamp %s exceeds int64 range", ts.String())
	}
	return ts.Int64(), nil
}
