package timelock

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// checkValue rejects call values outside the uint256 range.
func checkValue(v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative value %s", ErrInvalidValue, v)
	}
	if v.BitLen() > 256 {
		return fmt.Errorf("%w: value exceeds 256 bits", ErrInvalidValue)
	}
	return nil
}

func checkValues(calls []Call) error {
	for i, c := range calls {
		if err := checkValue(c.Value); err != nil {
			return fmt.Errorf("batch call %d: %w", i, err)
		}
	}
	return nil
}

func hashRLP(v interface{}) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// HashOperation returns the id of a single operation.
func HashOperation(call Call, predecessor, salt common.Hash) (common.Hash, error) {
	if err := checkValue(call.Value); err != nil {
		return common.Hash{}, err
	}
	return hashRLP([]interface{}{call.Target, valueOrZero(call.Value), call.Data, predecessor, salt})
}

// HashOperationBatch returns the id of a batch as a whole.
func HashOperationBatch(calls []Call, predecessor, salt common.Hash) (common.Hash, error) {
	if err := checkValues(calls); err != nil {
		return common.Hash{}, err
	}
	var (
		targets = make([]common.Address, len(calls))
		values  = make([]*big.Int, len(calls))
		datas   = make([][]byte, len(calls))
	)
	for i, c := range calls {
		targets[i], values[i], datas[i] = c.Target, valueOrZero(c.Value), c.Data
	}
	return hashRLP([]interface{}{targets, values, datas, predecessor, salt})
}

// HashBatchCall returns the id of the index-th sub-call of a batch. It is
// derived from the sub-call's own tuple plus its index, so it never equals
// the id of the same call scheduled alone.
func HashBatchCall(call Call, predecessor, salt common.Hash, index uint64) (common.Hash, error) {
	if err := checkValue(call.Value); err != nil {
		return common.Hash{}, err
	}
	return hashRLP([]interface{}{call.Target, valueOrZero(call.Value), call.Data, predecessor, salt, index})
}
