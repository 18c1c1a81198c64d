package pipeline

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// canonicalPayload is the fixed-order shape hashed into the content
// commitment. Field order is fixed by the struct, and the timestamp is the
// persisted submission time, so the digest can be recomputed from a stored
// mirror row and compared against the on-ledger hash.
type canonicalPayload struct {
	Company     string `json:"company"`
	DataType    string `json:"dataType"`
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	SubmittedAt int64  `json:"submittedAt"`
}

// Commitment computes the keccak256 content commitment over the canonicalized
// submission payload.
func Commitment(companyName, dataType, value, unit string, submittedAt time.Time) (common.Hash, error) {
	payload, err := json.Marshal(canonicalPayload{
		Company:     companyName,
		DataType:    dataType,
		Value:       value,
		Unit:        unit,
		SubmittedAt: submittedAt.Unix(),
	})
	if err != nil {
		return common.Hash{}, err
	}
	return gethcrypto.Keccak256Hash(payload), nil
}
