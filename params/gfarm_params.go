// Copyright 2024 The gtos Authors
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// System addresses owning protocol state.
var (
	// SystemActionAddress is the sentinel To-address for system actions that are
	// not bound to a component (kept for tooling that addresses the dispatcher).
	SystemActionAddress = common.HexToAddress("0x0000000000000000000000000000000054534F31") // "TOS1"

	// TimelockAddress owns scheduled operations and the minimum delay.
	TimelockAddress = common.HexToAddress("0x0000000000000000000000000000000054534F34") // "TOS4"

	// FarmAddress owns pools and user stakes, and holds custody of staked assets.
	FarmAddress = common.HexToAddress("0x0000000000000000000000000000000054534F35") // "TOS5"

	// AccessRegistryAddress stores role memberships for every domain.
	AccessRegistryAddress = common.HexToAddress("0x0000000000000000000000000000000054534F36") // "TOS6"

	// SwapRouterAddress stores the fee-swap pair registry.
	SwapRouterAddress = common.HexToAddress("0x0000000000000000000000000000000054534F37") // "TOS7"

	// NativeCurrency marks the chain's native currency inside a swap path.
	NativeCurrency = common.Address{}
)

// These are the multipliers for tos denominations.
const (
	Wei  = 1
	GWei = 1e9
	TOS  = 1e18
)

// Farm parameters.
var (
	// RewardPrecision is the fixed-point scale for accRewardPerShare.
	RewardPrecision = big.NewInt(1e12)

	// BPSDenominator is the basis-point denominator for deposit fees.
	BPSDenominator = uint64(10_000)

	// MaxDepositFeeBPS caps the deposit fee a pool may carry.
	MaxDepositFeeBPS = uint64(2_000) // 20%

	// DefaultEmissionPerBlock is the reward minted per block across all pools
	// when the genesis does not set one.
	DefaultEmissionPerBlock = new(big.Int).Mul(big.NewInt(40), big.NewInt(TOS))
)

// Timelock parameters.
var (
	// DefaultMinDelay is the scheduler's minimum delay in seconds when the
	// genesis does not set one.
	DefaultMinDelay = uint64(2 * 24 * 60 * 60)

	// MaxDelay bounds a single scheduling delay so readyTimestamp cannot wrap.
	MaxDelay = uint64(365 * 24 * 60 * 60)
)

// Swap parameters.
const (
	// SwapFeeNumerator / SwapFeeDenominator is the share of amountIn that
	// reaches the constant-product curve (0.25% pair fee).
	SwapFeeNumerator   = 9975
	SwapFeeDenominator = 10000
)

// DefaultBlockPeriod is the number of seconds between two blocks.
const DefaultBlockPeriod uint64 = 3
