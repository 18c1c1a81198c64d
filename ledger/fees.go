package ledger

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"esgledger/observability/metrics"
)

const (
	// FallbackGasLimit is the conservative budget used when the node cannot
	// simulate a call. A call that would revert cannot be simulated, so this
	// deliberately risks submitting something the ledger still rejects.
	FallbackGasLimit uint64 = 500_000

	// gasSafetyNumerator/Denominator apply the 1.2x budget headroom, floored.
	gasSafetyNumerator   = 12
	gasSafetyDenominator = 10
)

// DefaultGasPrice is the minimum price offered when the node's price oracle
// is unavailable: 2 gwei.
var DefaultGasPrice = new(big.Int).Mul(big.NewInt(2), big.NewInt(1_000_000_000))

// FeeEstimator computes an execution-fee budget and unit price for a pending
// call, with deterministic fallbacks when the node cannot answer.
type FeeEstimator struct {
	backend Backend
	logger  *slog.Logger
}

// NewFeeEstimator constructs an estimator over the given backend.
func NewFeeEstimator(backend Backend, logger *slog.Logger) *FeeEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeeEstimator{backend: backend, logger: logger}
}

// EstimateGas simulates the call and returns the simulated cost with 1.2x
// headroom, floored to a whole unit. Simulation failure falls back to
// FallbackGasLimit rather than failing the pipeline; the fallback is a
// degraded-mode event and is logged as such.
func (f *FeeEstimator) EstimateGas(ctx context.Context, from, to common.Address, data []byte) uint64 {
	simulated, err := f.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		f.logger.Warn("gas simulation failed, using fallback budget",
			"from", from.Hex(), "fallback", FallbackGasLimit, "err", err)
		metrics.FeeFallbacks.WithLabelValues("gas_limit").Inc()
		return FallbackGasLimit
	}
	return simulated * gasSafetyNumerator / gasSafetyDenominator
}

// GasPrice asks the node for the current price, falling back to
// DefaultGasPrice when the oracle is unavailable.
func (f *FeeEstimator) GasPrice(ctx context.Context) *big.Int {
	price, err := f.backend.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		f.logger.Warn("gas price lookup failed, using default price",
			"default", DefaultGasPrice.String(), "err", err)
		metrics.FeeFallbacks.WithLabelValues("gas_price").Inc()
		return new(big.Int).Set(DefaultGasPrice)
	}
	return price
}
