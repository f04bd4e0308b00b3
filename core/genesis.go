package core

import (
	"errors"
	"fmt"
	"math/big"

	mapset "github.com/deckarep/golang-set"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gfarm/access"
	"github.com/tos-network/gfarm/farm"
	"github.com/tos-network/gfarm/feeswap"
	"github.com/tos-network/gfarm/params"
	"github.com/tos-network/gfarm/timelock"
	"github.com/tos-network/gfarm/token"
)

var ErrGenesisExists = errors.New("database already contains a genesis")

// Genesis specifies the initial state of the chain.
type Genesis struct {
	Timestamp uint64
	Alloc     []GenesisAccount `toml:",omitempty"`
	Tokens    []GenesisToken   `toml:",omitempty"`
	Timelock  GenesisTimelock
	Farm      GenesisFarm
	Pairs     []GenesisPair `toml:",omitempty"`
}

// GenesisAccount is a native or token balance.
type GenesisAccount struct {
	Address common.Address
	Balance *big.Int
}

// GenesisToken registers an asset ledger.
type GenesisToken struct {
	Address  common.Address
	Minters  []common.Address `toml:",omitempty"`
	Balances []GenesisAccount `toml:",omitempty"`
}

// GenesisTimelock configures the operation scheduler. When Cancellers is
// empty the proposers may cancel.
type GenesisTimelock struct {
	MinDelay   uint64
	Proposers  []common.Address `toml:",omitempty"`
	Executors  []common.Address `toml:",omitempty"`
	Cancellers []common.Address `toml:",omitempty"`
}

// GenesisFarm configures the reward ledger. The timelock governs it.
type GenesisFarm struct {
	RewardToken      common.Address
	RewardSink       common.Address
	EmissionPerBlock *big.Int `toml:",omitempty"`
	StartBlock       uint64
}

// GenesisPair seeds a fee-swap pair. A NativeCurrency leg is credited to
// the router's balance; a token leg is minted to it.
type GenesisPair struct {
	TokenA   common.Address
	TokenB   common.Address
	ReserveA *big.Int
	ReserveB *big.Int
}

// DefaultGenesis returns a development genesis: one reward token minted by
// the farm, the timelock with the given proposer and open execution, and no
// pools.
func DefaultGenesis(proposer common.Address) *Genesis {
	reward := common.HexToAddress("0x0000000000000000000000000000000000001000")
	return &Genesis{
		Alloc:  []GenesisAccount{{Address: proposer, Balance: new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.TOS))}},
		Tokens: []GenesisToken{{Address: reward}},
		Timelock: GenesisTimelock{
			MinDelay:  params.DefaultMinDelay,
			Proposers: []common.Address{proposer},
			Executors: []common.Address{{}},
		},
		Farm: GenesisFarm{
			RewardToken:      reward,
			RewardSink:       proposer,
			EmissionPerBlock: params.DefaultEmissionPerBlock,
		},
	}
}

// ToState writes the genesis allocation into statedb.
func (g *Genesis) ToState(statedb *state.StateDB) error {
	for _, acc := range g.Alloc {
		if acc.Balance != nil {
			statedb.AddBalance(acc.Address, acc.Balance)
		}
	}
	tokens := mapset.NewSet()
	for _, t := range g.Tokens {
		if t.Address == params.NativeCurrency {
			return fmt.Errorf("token at reserved native address")
		}
		if !tokens.Add(t.Address) {
			return fmt.Errorf("duplicate genesis token %s", t.Address.Hex())
		}
		token.Register(statedb, t.Address)
		statedb.SetNonce(t.Address, 1)
		access.Grant(statedb, t.Address, access.DefaultAdminRole, params.TimelockAddress)
		for _, m := range t.Minters {
			access.Grant(statedb, t.Address, access.MinterRole, m)
		}
		for _, b := range t.Balances {
			if err := token.Mint(statedb, t.Address, b.Address, b.Balance); err != nil {
				return fmt.Errorf("token %s: %w", t.Address.Hex(), err)
			}
		}
	}
	g.timelockState(statedb)

	if g.Farm.RewardToken != (common.Address{}) {
		if !token.IsRegistered(statedb, g.Farm.RewardToken) {
			return fmt.Errorf("farm reward token %s is not a genesis token", g.Farm.RewardToken.Hex())
		}
		err := farm.Initialize(statedb, farm.Config{
			Governor:         params.TimelockAddress,
			RewardToken:      g.Farm.RewardToken,
			RewardSink:       g.Farm.RewardSink,
			EmissionPerBlock: g.Farm.EmissionPerBlock,
			StartBlock:       g.Farm.StartBlock,
		})
		if err != nil {
			return err
		}
		access.Grant(statedb, g.Farm.RewardToken, access.MinterRole, params.FarmAddress)
	}

	feeswap.SetGovernor(statedb, params.TimelockAddress)
	for _, p := range g.Pairs {
		for _, leg := range []common.Address{p.TokenA, p.TokenB} {
			if leg != params.NativeCurrency && !tokens.Contains(leg) {
				return fmt.Errorf("pair %s/%s: %s is not a genesis token", p.TokenA.Hex(), p.TokenB.Hex(), leg.Hex())
			}
		}
		for _, leg := range []GenesisAccount{{p.TokenA, p.ReserveA}, {p.TokenB, p.ReserveB}} {
			if leg.Balance == nil || leg.Balance.Sign() == 0 {
				continue
			}
			if leg.Address == params.NativeCurrency {
				statedb.AddBalance(params.SwapRouterAddress, leg.Balance)
			} else if err := token.Mint(statedb, leg.Address, params.SwapRouterAddress, leg.Balance); err != nil {
				return fmt.Errorf("pair %s/%s: %w", p.TokenA.Hex(), p.TokenB.Hex(), err)
			}
		}
		if err := feeswap.Seed(statedb, p.TokenA, p.TokenB, p.ReserveA, p.ReserveB); err != nil {
			return fmt.Errorf("pair %s/%s: %w", p.TokenA.Hex(), p.TokenB.Hex(), err)
		}
	}
	for _, addr := range []common.Address{
		params.TimelockAddress, params.FarmAddress, params.AccessRegistryAddress, params.SwapRouterAddress,
	} {
		statedb.SetNonce(addr, 1)
	}
	return nil
}

func (g *Genesis) timelockState(statedb *state.StateDB) {
	tl := g.Timelock
	timelock.SetMinDelay(statedb, tl.MinDelay)

	domain := params.TimelockAddress
	for _, role := range []common.Hash{access.TimelockAdminRole, access.ProposerRole, access.ExecutorRole, access.CancellerRole} {
		access.SetRoleAdmin(statedb, domain, role, access.TimelockAdminRole)
	}
	access.Grant(statedb, domain, access.TimelockAdminRole, params.TimelockAddress)
	for _, p := range tl.Proposers {
		access.Grant(statedb, domain, access.ProposerRole, p)
	}
	for _, e := range tl.Executors {
		access.Grant(statedb, domain, access.ExecutorRole, e)
	}
	cancellers := tl.Cancellers
	if len(cancellers) == 0 {
		cancellers = tl.Proposers
	}
	for _, c := range cancellers {
		access.Grant(statedb, domain, access.CancellerRole, c)
	}
}

// Commit writes the genesis state and block 0 to db.
func (g *Genesis) Commit(db ethdb.Database) (*Header, error) {
	if _, err := ReadHead(db); err == nil {
		return nil, ErrGenesisExists
	}
	sdb := state.NewDatabase(db)
	statedb, err := state.New(common.Hash{}, sdb, nil)
	if err != nil {
		return nil, err
	}
	if err := g.ToState(statedb); err != nil {
		return nil, err
	}
	root, err := statedb.Commit(false)
	if err != nil {
		return nil, err
	}
	if err := sdb.TrieDB().Commit(root, false, nil); err != nil {
		return nil, err
	}
	head := &Header{Number: 0, Time: g.Timestamp, Root: root}
	if err := writeHead(db, head); err != nil {
		return nil, err
	}
	log.Info("Wrote genesis", "hash", head.Hash(), "root", root, "tokens", len(g.Tokens), "pairs", len(g.Pairs))
	return head, nil
}
