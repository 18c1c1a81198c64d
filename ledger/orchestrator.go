package ledger

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"esgledger/observability/metrics"
)

// Intent names a contract call to execute on behalf of a sender. When
// ExpectEvent is set, Execute extracts ExpectField from the matching decoded
// event and fails with event_not_found if the event is absent.
type Intent struct {
	Method      string
	Sender      string
	Args        []interface{}
	ExpectEvent string
	ExpectField string
}

// TxResult reports the ledger-visible outcome of an executed intent. Numeric
// fields are decimal strings.
type TxResult struct {
	TxHash      string
	BlockNumber string
	GasUsed     string
	EventValue  string
	Events      []Event
}

// Submitter covers the contract-call surface the orchestrator drives.
type Submitter interface {
	Contract() common.Address
	Pack(method string, args ...interface{}) ([]byte, error)
	Submit(ctx context.Context, method, sender string, gasLimit uint64, gasPrice *big.Int, args ...interface{}) (*Receipt, error)
}

// Estimator prices a pending call.
type Estimator interface {
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) uint64
	GasPrice(ctx context.Context) *big.Int
}

// Orchestrator builds, prices, submits, and decodes one contract call per
// intent. It never touches the mirror store and never retries a submission.
type Orchestrator struct {
	client Submitter
	fees   Estimator
	logger *slog.Logger
}

// NewOrchestrator wires an orchestrator over a client and fee estimator.
func NewOrchestrator(client Submitter, fees Estimator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, fees: fees, logger: logger}
}

// Execute runs the intent end to end: price, submit, wait for inclusion,
// extract the expected event field. A transaction that succeeds without the
// expected event is an inconsistent state, surfaced distinctly and never
// retried here.
func (o *Orchestrator) Execute(ctx context.Context, intent Intent) (*TxResult, error) {
	data, err := o.client.Pack(intent.Method, intent.Args...)
	if err != nil {
		return nil, err
	}
	from := common.HexToAddress(intent.Sender)
	gasLimit := o.fees.EstimateGas(ctx, from, o.client.Contract(), data)
	gasPrice := o.fees.GasPrice(ctx)

	o.logger.Info("submitting ledger transaction",
		"method", intent.Method, "sender", intent.Sender,
		"gas_limit", gasLimit, "gas_price", gasPrice.String())

	receipt, err := o.client.Submit(ctx, intent.Method, intent.Sender, gasLimit, gasPrice, intent.Args...)
	if err != nil {
		metrics.TxFailed.WithLabelValues(intent.Method, string(KindOf(err))).Inc()
		return nil, err
	}
	metrics.TxSubmitted.WithLabelValues(intent.Method).Inc()

	result := &TxResult{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
		Events:      receipt.Events,
	}
	if intent.ExpectEvent != "" {
		value, err := ExtractEventField(receipt.Events, intent.ExpectEvent, intent.ExpectField)
		if err != nil {
			o.logger.Error("included transaction missing expected event; manual reconciliation required",
				"method", intent.Method, "tx", receipt.TxHash,
				"event", intent.ExpectEvent, "field", intent.ExpectField)
			metrics.TxFailed.WithLabelValues(intent.Method, string(KindEventNotFound)).Inc()
			return nil, err
		}
		result.EventValue = value
	}
	return result, nil
}

// ExtractEventField locates the named event in a decoded log set and returns
// the named field. Both the event name and the field name are explicit; an
// absent match fails with event_not_found rather than indexing into an
// assumed structure.
func ExtractEventField(events []Event, name, field string) (string, error) {
	for _, ev := range events {
		if ev.Name != name {
			continue
		}
		value, ok := ev.Fields[field]
		if !ok {
			return "", Errorf(KindEventNotFound, "event %s has no field %s", name, field)
		}
		return value, nil
	}
	return "", Errorf(KindEventNotFound, "event %s not emitted", name)
}
