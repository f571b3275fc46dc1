package market_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openvault/rebalancer/internal/market"
	"github.com/openvault/rebalancer/internal/types"
)

const (
	stableDenom    = "usdc"
	riskDenom      = "eth"
	stableDecimals = 6
	riskDecimals   = 18
)

func newVenue(t *testing.T, price string) (*market.SimVenue, *market.SimToken, *market.SimToken) {
	t.Helper()
	oracle := market.NewSimOracle(sdkmath.LegacyMustNewDecFromStr(price), time.Now())
	stable := market.NewSimToken(stableDenom, nil)
	risk := market.NewSimToken(riskDenom, nil)
	return market.NewSimVenue(oracle, stable, risk, stableDecimals, riskDecimals), stable, risk
}

func eth(whole string) sdkmath.Int {
	return sdkmath.LegacyMustNewDecFromStr(whole).
		Mul(sdkmath.LegacyNewDec(10).Power(riskDecimals)).TruncateInt()
}

func TestSimVenueQuotesBothDirections(t *testing.T) {
	venue, _, _ := newVenue(t, "2000")

	// 36 USDC buys 0.018 ETH.
	out, err := venue.Quote(stableDenom, riskDenom, sdkmath.NewInt(36_000_000))
	require.NoError(t, err)
	require.Equal(t, eth("0.018"), out)

	// 0.018 ETH sells for 36 USDC.
	out, err = venue.Quote(riskDenom, stableDenom, eth("0.018"))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(36_000_000), out)
}

func TestSimVenueRejectsUnknownPair(t *testing.T) {
	venue, _, _ := newVenue(t, "2000")

	_, err := venue.Quote(stableDenom, "btc", sdkmath.NewInt(1))
	require.Error(t, err)
}

func TestSimVenueSwapEnforcesMinimumOut(t *testing.T) {
	venue, _, _ := newVenue(t, "2000")
	venue.SetExecutionRate(sdkmath.LegacyMustNewDecFromStr("0.9"))

	quoted, err := venue.Quote(stableDenom, riskDenom, sdkmath.NewInt(36_000_000))
	require.NoError(t, err)

	// A 10% haircut against a 0.5% tolerance fails the swap.
	minOut := quoted.MulRaw(9950).QuoRaw(10000)
	_, err = venue.Swap(stableDenom, riskDenom, sdkmath.NewInt(36_000_000), minOut)
	require.ErrorIs(t, err, types.ErrSlippageExceeded)
}

func TestSimVenueSettlesAgainstCounterparty(t *testing.T) {
	venue, stable, risk := newVenue(t, "2000")

	stable.Mint("pool", sdkmath.NewInt(100_000_000))
	risk.Mint(venue.Address(), eth("1"))
	venue.SetCounterparty("pool")

	out, err := venue.Swap(stableDenom, riskDenom, sdkmath.NewInt(36_000_000), sdkmath.ZeroInt())
	require.NoError(t, err)
	require.Equal(t, eth("0.018"), out)

	require.Equal(t, sdkmath.NewInt(64_000_000), stable.BalanceOf("pool"))
	require.Equal(t, eth("0.018"), risk.BalanceOf("pool"))
	require.Equal(t, sdkmath.NewInt(36_000_000), stable.BalanceOf(venue.Address()))
}

func TestSimTokenTransferFromRequiresAllowance(t *testing.T) {
	token := market.NewSimToken(stableDenom, map[string]sdkmath.Int{
		"alice": sdkmath.NewInt(100),
	})

	err := token.TransferFrom("alice", "pool", sdkmath.NewInt(50))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	token.Approve("alice", "pool", sdkmath.NewInt(60))
	require.NoError(t, token.TransferFrom("alice", "pool", sdkmath.NewInt(50)))
	require.Equal(t, sdkmath.NewInt(50), token.BalanceOf("alice"))
	require.Equal(t, sdkmath.NewInt(50), token.BalanceOf("pool"))

	// Allowance is spent down, not reset.
	err = token.TransferFrom("alice", "pool", sdkmath.NewInt(20))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)
}

func TestSimTokenTransferInsufficientBalance(t *testing.T) {
	token := market.NewSimToken(stableDenom, nil)
	err := token.Transfer("alice", "bob", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestSimOracleSetPrice(t *testing.T) {
	ts := time.Now()
	oracle := market.NewSimOracle(sdkmath.LegacyNewDec(2000), ts)

	quote, err := oracle.LatestPrice()
	require.NoError(t, err)
	require.Equal(t, sdkmath.LegacyNewDec(2000), quote.Price)
	require.Equal(t, ts, quote.Timestamp)

	later := ts.Add(time.Minute)
	oracle.SetPrice(sdkmath.LegacyNewDec(2100), later)
	quote, err = oracle.LatestPrice()
	require.NoError(t, err)
	require.Equal(t, sdkmath.LegacyNewDec(2100), quote.Price)
	require.Equal(t, later, quote.Timestamp)
}
