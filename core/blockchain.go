package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/tos-network/gfarm/params"
)

var headKey = []byte("gfarm-head")

const receiptsCacheLimit = 1024

var (
	blockInsertTimer = metrics.NewRegisteredTimer("chain/inserts", nil)
	messageMeter     = metrics.NewRegisteredMeter("chain/messages", nil)
	revertMeter      = metrics.NewRegisteredMeter("chain/reverts", nil)
)

// LogsEvent is posted for every successful message that emitted logs.
type LogsEvent struct {
	Logs []*types.Log
}

// BlockChain is a single-writer chain: messages apply to a pending block on
// top of the head, and Mine seals the pending block and persists its state.
type BlockChain struct {
	mu      sync.Mutex
	db      ethdb.Database
	stateDB state.Database
	state   *state.StateDB
	head    *Header
	pending *Header
	period  uint64

	receiptsCache *lru.Cache // recent receipts by message hash

	logsFeed event.Feed
	scope    event.SubscriptionScope
}

// NewBlockChain opens the chain stored in db. The database must have been
// initialised with Genesis.Commit.
func NewBlockChain(db ethdb.Database) (*BlockChain, error) {
	head, err := ReadHead(db)
	if err != nil {
		return nil, err
	}
	receiptsCache, _ := lru.New(receiptsCacheLimit)
	bc := &BlockChain{
		db:            db,
		stateDB:       state.NewDatabase(db),
		head:          head,
		period:        params.DefaultBlockPeriod,
		receiptsCache: receiptsCache,
	}
	if err := bc.reset(); err != nil {
		return nil, err
	}
	return bc, nil
}

// ReadHead returns the current head header stored in db.
func ReadHead(db ethdb.KeyValueReader) (*Header, error) {
	enc, err := db.Get(headKey)
	if err != nil || len(enc) == 0 {
		return nil, ErrNoGenesis
	}
	head := new(Header)
	if err := rlp.DecodeBytes(enc, head); err != nil {
		return nil, fmt.Errorf("invalid head header: %w", err)
	}
	return head, nil
}

func writeHead(db ethdb.KeyValueWriter, head *Header) error {
	enc, err := rlp.EncodeToBytes(head)
	if err != nil {
		return err
	}
	return db.Put(headKey, enc)
}

func (bc *BlockChain) reset() error {
	statedb, err := state.New(bc.head.Root, bc.stateDB, nil)
	if err != nil {
		return fmt.Errorf("open state %x: %w", bc.head.Root, err)
	}
	bc.state = statedb
	bc.pending = &Header{
		ParentHash: bc.head.Hash(),
		Number:     bc.head.Number + 1,
		Time:       bc.head.Time + bc.period,
	}
	return nil
}

// Head returns a copy of the last sealed header.
func (bc *BlockChain) Head() Header {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return *bc.head
}

// Pending returns a copy of the header messages currently apply to.
func (bc *BlockChain) Pending() Header {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return *bc.pending
}

// State returns the pending state. Callers must not use it concurrently
// with Apply or Mine.
func (bc *BlockChain) State() *state.StateDB {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.state
}

// SetPendingTime moves the timestamp of the pending block. It cannot go
// behind the head.
func (bc *BlockChain) SetPendingTime(time uint64) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if time < bc.head.Time {
		return fmt.Errorf("%w: %d < %d", ErrTimeTravel, time, bc.head.Time)
	}
	bc.pending.Time = time
	return nil
}

// Apply executes msg in the pending block.
func (bc *BlockChain) Apply(msg Message) (*Receipt, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	receipt, err := ApplyMessage(bc.state, bc.pending, msg, int(bc.pending.TxCount))
	if err != nil {
		return nil, err
	}
	bc.pending.TxCount++
	bc.receiptsCache.Add(receipt.TxHash, receipt)
	messageMeter.Mark(1)
	if receipt.Failed() {
		revertMeter.Mark(1)
	} else if len(receipt.Logs) > 0 {
		bc.logsFeed.Send(LogsEvent{Logs: receipt.Logs})
	}
	return receipt, nil
}

// Mine seals the pending block, persists its state and opens the next one.
func (bc *BlockChain) Mine() (*Header, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	start := time.Now()
	root, err := bc.state.Commit(false)
	if err != nil {
		return nil, err
	}
	if err := bc.stateDB.TrieDB().Commit(root, false, nil); err != nil {
		return nil, err
	}
	sealed := *bc.pending
	sealed.Root = root
	if err := writeHead(bc.db, &sealed); err != nil {
		return nil, err
	}
	bc.head = &sealed
	if err := bc.reset(); err != nil {
		return nil, err
	}
	blockInsertTimer.UpdateSince(start)
	log.Info("Sealed block", "number", sealed.Number, "hash", sealed.Hash(), "root", root, "txs", sealed.TxCount, "time", sealed.Time)
	return &sealed, nil
}

// Receipt returns a recently applied message's receipt, or nil if it is no
// longer cached.
func (bc *BlockChain) Receipt(hash common.Hash) *Receipt {
	if r, ok := bc.receiptsCache.Get(hash); ok {
		return r.(*Receipt)
	}
	return nil
}

// SubscribeLogsEvent registers a subscription for logs of applied messages.
func (bc *BlockChain) SubscribeLogsEvent(ch chan<- LogsEvent) event.Subscription {
	return bc.scope.Track(bc.logsFeed.Subscribe(ch))
}

// Stop closes every subscription.
func (bc *BlockChain) Stop() {
	bc.scope.Close()
}
