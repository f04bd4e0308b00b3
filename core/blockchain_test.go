package core

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/stretchr/testify/require"

	"github.com/tos-network/gfarm/access"
	"github.com/tos-network/gfarm/farm"
	"github.com/tos-network/gfarm/feeswap"
	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/sysaction"
	"github.com/tos-network/gfarm/timelock"
	"github.com/tos-network/gfarm/token"
)

var (
	proposer   = common.Address{0x01}
	alice      = common.Address{0xa1}
	bob        = common.Address{0xb0}
	stakeToken = common.HexToAddress("0x0000000000000000000000000000000000002000")
)

const testDelay = 10

func testGenesis() *Genesis {
	g := DefaultGenesis(proposer)
	g.Timelock.MinDelay = testDelay
	g.Farm.EmissionPerBlock = big.NewInt(40)
	g.Tokens = append(g.Tokens, GenesisToken{
		Address:  stakeToken,
		Balances: []GenesisAccount{{Address: alice, Balance: big.NewInt(1000)}},
	})
	g.Alloc = append(g.Alloc, GenesisAccount{Address: alice, Balance: big.NewInt(100)})
	return g
}

func newTestChain(t *testing.T) (ethdb.Database, *BlockChain) {
	t.Helper()
	db := rawdb.NewMemoryDatabase()
	_, err := testGenesis().Commit(db)
	require.NoError(t, err)
	bc, err := NewBlockChain(db)
	require.NoError(t, err)
	t.Cleanup(bc.Stop)
	return db, bc
}

func action(t *testing.T, kind sysaction.ActionKind, payload interface{}) []byte {
	t.Helper()
	data, err := sysaction.MakeSysAction(kind, payload)
	require.NoError(t, err)
	return data
}

func TestGenesisCommit(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	_, err := NewBlockChain(db)
	require.ErrorIs(t, err, ErrNoGenesis)

	head, err := testGenesis().Commit(db)
	require.NoError(t, err)
	require.EqualValues(t, 0, head.Number)
	_, err = testGenesis().Commit(db)
	require.ErrorIs(t, err, ErrGenesisExists)

	bc, err := NewBlockChain(db)
	require.NoError(t, err)
	defer bc.Stop()
	require.Equal(t, head.Hash(), bc.Head().Hash())
	require.Equal(t, head.Hash(), bc.Pending().ParentHash)

	st := bc.State()
	require.EqualValues(t, testDelay, timelock.GetMinDelay(st))
	require.True(t, access.HasRole(st, params.TimelockAddress, access.ProposerRole, proposer))
	require.True(t, access.HasRole(st, params.TimelockAddress, access.CancellerRole, proposer))
	require.True(t, access.HasRole(st, params.TimelockAddress, access.ExecutorRole, common.Address{}))
	require.True(t, access.HasRole(st, params.TimelockAddress, access.TimelockAdminRole, params.TimelockAddress))

	cfg, err := farm.ReadConfig(st)
	require.NoError(t, err)
	require.Equal(t, params.TimelockAddress, cfg.Governor)
	require.True(t, access.HasRole(st, cfg.RewardToken, access.MinterRole, params.FarmAddress))
	require.EqualValues(t, 1000, token.BalanceOf(st, stakeToken, alice).Int64())
}

func TestGenesisRejectsUnknownRewardToken(t *testing.T) {
	g := testGenesis()
	g.Farm.RewardToken = common.HexToAddress("0x0000000000000000000000000000000000009999")
	_, err := g.Commit(rawdb.NewMemoryDatabase())
	require.Error(t, err)
}

func TestGenesisRejectsDuplicates(t *testing.T) {
	g := testGenesis()
	g.Tokens = append(g.Tokens, GenesisToken{Address: stakeToken})
	_, err := g.Commit(rawdb.NewMemoryDatabase())
	require.ErrorContains(t, err, "duplicate genesis token")

	g = testGenesis()
	g.Pairs = []GenesisPair{{
		TokenA:   common.HexToAddress("0x0000000000000000000000000000000000007777"),
		TokenB:   params.NativeCurrency,
		ReserveA: big.NewInt(1),
		ReserveB: big.NewInt(1),
	}}
	_, err = g.Commit(rawdb.NewMemoryDatabase())
	require.ErrorContains(t, err, "is not a genesis token")
}

func TestGenesisSeedsPairs(t *testing.T) {
	g := testGenesis()
	g.Pairs = []GenesisPair{{TokenA: stakeToken, TokenB: params.NativeCurrency, ReserveA: big.NewInt(500), ReserveB: big.NewInt(700)}}
	db := rawdb.NewMemoryDatabase()
	_, err := g.Commit(db)
	require.NoError(t, err)
	bc, err := NewBlockChain(db)
	require.NoError(t, err)
	defer bc.Stop()

	st := bc.State()
	pair := feeswap.GetPair(st, stakeToken, params.NativeCurrency)
	require.NotNil(t, pair)
	require.EqualValues(t, 700, pair.Reserve0.Int64())
	require.EqualValues(t, 500, pair.Reserve1.Int64())
	require.EqualValues(t, 700, st.GetBalance(params.SwapRouterAddress).Int64())
	require.EqualValues(t, 500, token.BalanceOf(st, stakeToken, params.SwapRouterAddress).Int64())
	require.Equal(t, params.TimelockAddress, feeswap.Governor(st))
}

func TestApplyAndMinePersists(t *testing.T) {
	db, bc := newTestChain(t)

	r, err := bc.Apply(Message{From: alice, To: bob, Value: big.NewInt(40)})
	require.NoError(t, err)
	require.False(t, r.Failed())
	_, err = bc.Apply(Message{From: alice, To: bob, Value: big.NewInt(61)})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	transfer := action(t, sysaction.ActionTokenTransfer, &token.TransferPayload{To: bob, Amount: big.NewInt(250)})
	r, err = bc.Apply(Message{From: alice, To: stakeToken, Data: transfer})
	require.NoError(t, err)
	require.False(t, r.Failed(), "transfer failed: %v", r.Err)
	require.Len(t, r.Logs, 1)
	require.EqualValues(t, 1, r.Logs[0].BlockNumber)
	require.Equal(t, r, bc.Receipt(r.TxHash))

	sealed, err := bc.Mine()
	require.NoError(t, err)
	require.EqualValues(t, 1, sealed.Number)
	require.EqualValues(t, 2, sealed.TxCount)

	reopened, err := NewBlockChain(db)
	require.NoError(t, err)
	defer reopened.Stop()
	require.Equal(t, sealed.Hash(), reopened.Head().Hash())
	st := reopened.State()
	require.EqualValues(t, 40, st.GetBalance(bob).Int64())
	require.EqualValues(t, 250, token.BalanceOf(st, stakeToken, bob).Int64())
	require.EqualValues(t, testDelay, timelock.GetMinDelay(st))
}

func TestRevertedMessage(t *testing.T) {
	_, bc := newTestChain(t)
	addPool := action(t, sysaction.ActionFarmAddPool, &farm.AddPoolPayload{Asset: stakeToken, AllocPoints: 1})

	r, err := bc.Apply(Message{From: alice, To: params.FarmAddress, Value: big.NewInt(5), Data: addPool})
	require.NoError(t, err)
	require.True(t, r.Failed())
	require.True(t, errors.Is(r.Err, farm.ErrUnauthorized), "got %v", r.Err)
	require.Empty(t, r.Logs)
	require.EqualValues(t, 100, bc.State().GetBalance(alice).Int64())
	require.EqualValues(t, 0, farm.PoolLength(bc.State()))

	r, err = bc.Apply(Message{From: alice, To: params.FarmAddress, Data: []byte("not json")})
	require.NoError(t, err)
	require.True(t, errors.Is(r.Err, sysaction.ErrInvalidSysAction), "got %v", r.Err)
}

func TestRoleChangesRequireTheTimelock(t *testing.T) {
	_, bc := newTestChain(t)
	grant := action(t, sysaction.ActionAccessGrantRole, &access.RolePayload{
		Domain:  params.TimelockAddress,
		Role:    access.ProposerRole,
		Account: bob,
	})
	for _, from := range []common.Address{proposer, alice, bob} {
		r, err := bc.Apply(Message{From: from, To: params.AccessRegistryAddress, Data: grant})
		require.NoError(t, err)
		require.True(t, errors.Is(r.Err, access.ErrUnauthorized), "direct grant from %x: %v", from, r.Err)
	}
	require.False(t, access.HasRole(bc.State(), params.TimelockAddress, access.ProposerRole, bob))
}

func TestInvalidCallValueFailsMessage(t *testing.T) {
	_, bc := newTestChain(t)
	execute := []byte(`{"action":"TIMELOCK_EXECUTE","payload":{"target":"0x0000000000000000000000000000000000000000","value":-1,"data":"0x"}}`)
	r, err := bc.Apply(Message{From: bob, To: params.TimelockAddress, Data: execute})
	require.NoError(t, err)
	require.True(t, r.Failed())
	require.True(t, errors.Is(r.Err, timelock.ErrInvalidValue), "got %v", r.Err)
}

func TestSetPendingTime(t *testing.T) {
	_, bc := newTestChain(t)
	_, err := bc.Mine()
	require.NoError(t, err)
	head := bc.Head()
	require.ErrorIs(t, bc.SetPendingTime(head.Time-1), ErrTimeTravel)
	require.NoError(t, bc.SetPendingTime(head.Time+100))
	require.EqualValues(t, head.Time+100, bc.Pending().Time)
}

func TestLogsFeed(t *testing.T) {
	_, bc := newTestChain(t)
	ch := make(chan LogsEvent, 1)
	sub := bc.SubscribeLogsEvent(ch)
	defer sub.Unsubscribe()

	schedule := action(t, sysaction.ActionTimelockSchedule, &timelock.SchedulePayload{
		Target: params.FarmAddress,
		Data:   action(t, sysaction.ActionFarmMassUpdatePools, nil),
		Delay:  testDelay,
	})
	r, err := bc.Apply(Message{From: proposer, To: params.TimelockAddress, Data: schedule})
	require.NoError(t, err)
	require.False(t, r.Failed(), "schedule failed: %v", r.Err)

	select {
	case ev := <-ch:
		require.Len(t, ev.Logs, 1)
		require.Equal(t, timelock.CallScheduledID, ev.Logs[0].Topics[0])
		require.Equal(t, r.TxHash, ev.Logs[0].TxHash)
	case <-time.After(time.Second):
		t.Fatal("no logs event")
	}
}

// TestGovernedPoolLifecycle drives a pool through the timelock and then
// stakes in it, with every step delivered as a message.
func TestGovernedPoolLifecycle(t *testing.T) {
	_, bc := newTestChain(t)
	apply := func(from, to common.Address, data []byte) *Receipt {
		t.Helper()
		r, err := bc.Apply(Message{From: from, To: to, Data: data})
		require.NoError(t, err)
		return r
	}
	mine := func() *Header {
		t.Helper()
		h, err := bc.Mine()
		require.NoError(t, err)
		return h
	}

	addPool := action(t, sysaction.ActionFarmAddPool, &farm.AddPoolPayload{Asset: stakeToken, AllocPoints: 100})
	schedule := action(t, sysaction.ActionTimelockSchedule, &timelock.SchedulePayload{
		Target: params.FarmAddress, Data: addPool, Delay: testDelay,
	})
	execute := action(t, sysaction.ActionTimelockExecute, &timelock.ExecutePayload{
		Target: params.FarmAddress, Data: addPool,
	})

	r := apply(proposer, params.TimelockAddress, schedule)
	require.False(t, r.Failed(), "schedule: %v", r.Err)
	scheduledAt := bc.Pending().Time
	mine()

	r = apply(bob, params.TimelockAddress, execute)
	require.True(t, errors.Is(r.Err, timelock.ErrNotReady), "got %v", r.Err)

	require.NoError(t, bc.SetPendingTime(scheduledAt+testDelay))
	r = apply(bob, params.TimelockAddress, execute)
	require.False(t, r.Failed(), "execute: %v", r.Err)
	require.EqualValues(t, 1, farm.PoolLength(bc.State()))
	mine()

	approve := action(t, sysaction.ActionTokenApprove, &token.ApprovePayload{Spender: params.FarmAddress, Amount: big.NewInt(1000)})
	require.False(t, apply(alice, stakeToken, approve).Failed())
	deposit := action(t, sysaction.ActionFarmDeposit, &farm.AmountPayload{PoolID: 0, Amount: big.NewInt(1000)})
	r = apply(alice, params.FarmAddress, deposit)
	require.False(t, r.Failed(), "deposit: %v", r.Err)
	depositBlock := mine().Number

	for i := 0; i < 4; i++ {
		mine()
	}
	harvestBlock := bc.Pending().Number
	owed, err := farm.PendingReward(bc.State(), 0, alice, harvestBlock)
	require.NoError(t, err)
	require.EqualValues(t, 40*(harvestBlock-depositBlock), owed.Int64())

	harvest := action(t, sysaction.ActionFarmDeposit, &farm.AmountPayload{PoolID: 0, Amount: big.NewInt(0)})
	r = apply(alice, params.FarmAddress, harvest)
	require.False(t, r.Failed(), "harvest: %v", r.Err)
	cfg, err := farm.ReadConfig(bc.State())
	require.NoError(t, err)
	require.Zero(t, owed.Cmp(token.BalanceOf(bc.State(), cfg.RewardToken, alice)))
}
