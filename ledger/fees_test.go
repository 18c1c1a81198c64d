package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	estimate    uint64
	estimateErr error
	price       *big.Int
	priceErr    error
}

func (s *stubBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *stubBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return s.estimate, s.estimateErr
}

func (s *stubBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return s.price, s.priceErr
}

func (s *stubBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, errors.New("not implemented")
}

func (s *stubBackend) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return errors.New("not implemented")
}

func (s *stubBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return nil, errors.New("not implemented")
}

func TestEstimateGasAppliesHeadroom(t *testing.T) {
	fees := NewFeeEstimator(&stubBackend{estimate: 100_000}, nil)
	got := fees.EstimateGas(context.Background(), common.Address{}, common.Address{}, nil)
	require.Equal(t, uint64(120_000), got)
	require.GreaterOrEqual(t, got, uint64(100_000))
}

func TestEstimateGasFloorsOddEstimates(t *testing.T) {
	fees := NewFeeEstimator(&stubBackend{estimate: 21_001}, nil)
	got := fees.EstimateGas(context.Background(), common.Address{}, common.Address{}, nil)
	// floor(21001 * 1.2) = 25201
	require.Equal(t, uint64(25_201), got)
}

func TestEstimateGasFallsBackOnSimulationFailure(t *testing.T) {
	fees := NewFeeEstimator(&stubBackend{estimateErr: errors.New("execution reverted")}, nil)
	got := fees.EstimateGas(context.Background(), common.Address{}, common.Address{}, nil)
	require.Equal(t, FallbackGasLimit, got)
}

func TestGasPriceFallsBackWhenOracleUnavailable(t *testing.T) {
	fees := NewFeeEstimator(&stubBackend{priceErr: errors.New("connection refused")}, nil)
	got := fees.GasPrice(context.Background())
	require.Zero(t, got.Cmp(DefaultGasPrice))
}

func TestGasPriceUsesOracle(t *testing.T) {
	want := big.NewInt(3_000_000_000)
	fees := NewFeeEstimator(&stubBackend{price: want}, nil)
	got := fees.GasPrice(context.Background())
	require.Zero(t, got.Cmp(want))
}
