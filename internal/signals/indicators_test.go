package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// seriesOf builds an ascending daily close series from the given values, the
// last value being today.
func seriesOf(closes ...float64) []models.PricePoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{Date: base.AddDate(0, 0, i), Close: c}
	}
	return points
}

func fptr(v float64) *float64 { return &v }

func TestSMA(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		expected *float64
	}{
		{
			name:     "exact window",
			closes:   []float64{10, 20, 30},
			period:   3,
			expected: fptr(20),
		},
		{
			name:     "uses trailing window only",
			closes:   []float64{100, 10, 20, 30},
			period:   3,
			expected: fptr(20),
		},
		{
			name:     "series too short",
			closes:   []float64{10, 20},
			period:   3,
			expected: nil,
		},
		{
			name:     "empty series",
			closes:   nil,
			period:   5,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(seriesOf(tt.closes...), tt.period)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func TestPrevSMA(t *testing.T) {
	// Yesterday's window drops the final observation.
	points := seriesOf(10, 20, 30, 40)

	got := PrevSMA(points, 3)
	require.NotNil(t, got)
	assert.InDelta(t, 20.0, *got, 1e-9) // (10+20+30)/3

	assert.Nil(t, PrevSMA(seriesOf(10, 20, 30), 3))
	assert.Nil(t, PrevSMA(nil, 3))
}

func TestRSI(t *testing.T) {
	t.Run("requires period plus one points", func(t *testing.T) {
		assert.Nil(t, RSI(seriesOf(1, 2, 3), 14))

		points := seriesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)
		assert.Nil(t, RSI(points, 14), "14 points give only 13 deltas")
	})

	t.Run("all gains pins at 100", func(t *testing.T) {
		points := seriesOf(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
		got := RSI(points, 14)
		require.NotNil(t, got)
		assert.InDelta(t, 100.0, *got, 1e-9)
	})

	t.Run("all losses pins at 0", func(t *testing.T) {
		points := seriesOf(15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)
		got := RSI(points, 14)
		require.NotNil(t, got)
		assert.InDelta(t, 0.0, *got, 1e-9)
	})

	t.Run("balanced gains and losses sit at 50", func(t *testing.T) {
		// Alternating +1/-1 over 14 deltas: 7 gains, 7 losses.
		points := seriesOf(10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10)
		got := RSI(points, 14)
		require.NotNil(t, got)
		assert.InDelta(t, 50.0, *got, 1e-9)
	})

	t.Run("flat series is neutral, not overbought", func(t *testing.T) {
		points := seriesOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)
		got := RSI(points, 14)
		require.NotNil(t, got)
		assert.InDelta(t, 50.0, *got, 1e-9)
	})

	t.Run("known mixed series", func(t *testing.T) {
		// 14 deltas: twelve +2 gains, two -4 losses.
		// avgGain = 24/14, avgLoss = 8/14, RS = 3, RSI = 75.
		closes := []float64{100}
		cur := 100.0
		deltas := []float64{2, 2, 2, -4, 2, 2, 2, 2, -4, 2, 2, 2, 2, 2}
		for _, d := range deltas {
			cur += d
			closes = append(closes, cur)
		}
		got := RSI(seriesOf(closes...), 14)
		require.NotNil(t, got)
		assert.InDelta(t, 75.0, *got, 1e-9)
	})
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	closes := make([]float64, 0, 250)
	for i := 0; i < 250; i++ {
		closes = append(closes, 100+float64(i%7))
	}
	series := models.HistoricalSeries{
		Ticker:   "005930",
		Exchange: "KRX",
		Points:   seriesOf(closes...),
	}

	set := Compute(series, now)
	require.NotNil(t, set)
	assert.Equal(t, "005930", set.Ticker)
	assert.Equal(t, now, set.ComputedAt)

	for _, period := range models.IndicatorPeriods {
		assert.NotNil(t, set.SMAAt(period), "period %d", period)
		assert.NotNil(t, set.PrevSMAAt(period), "period %d", period)
	}
	require.NotNil(t, set.RSI)
	require.NotNil(t, set.PrevRSI)
}

func TestComputeShortSeries(t *testing.T) {
	series := models.HistoricalSeries{
		Ticker: "TSLA",
		Points: seriesOf(100, 101, 102, 103, 104, 105, 106, 107),
	}

	set := Compute(series, time.Now())
	require.NotNil(t, set)

	assert.NotNil(t, set.SMAAt(5))
	assert.Nil(t, set.SMAAt(10), "8 points cannot support a 10-day average")
	assert.Nil(t, set.SMAAt(200))
	assert.Nil(t, set.RSI, "8 points cannot support RSI(14)")
}

func TestGoldenCross(t *testing.T) {
	build := func(prevShort, prevLong, curShort, curLong float64) *models.IndicatorSet {
		return &models.IndicatorSet{
			SMA:     map[int]*float64{20: fptr(curShort), 60: fptr(curLong)},
			PrevSMA: map[int]*float64{20: fptr(prevShort), 60: fptr(prevLong)},
		}
	}

	tests := []struct {
		name   string
		set    *models.IndicatorSet
		golden bool
		dead   bool
	}{
		{
			name:   "upward crossover",
			set:    build(99, 100, 101, 100),
			golden: true,
			dead:   false,
		},
		{
			name:   "downward crossover",
			set:    build(101, 100, 99, 100),
			golden: false,
			dead:   true,
		},
		{
			name:   "touch then rise counts as golden",
			set:    build(100, 100, 101, 100),
			golden: true,
			dead:   false,
		},
		{
			name:   "still above, no transition",
			set:    build(101, 100, 102, 100),
			golden: false,
			dead:   false,
		},
		{
			name:   "still below, no transition",
			set:    build(99, 100, 98, 100),
			golden: false,
			dead:   false,
		},
		{
			name:   "equal both days fires neither",
			set:    build(100, 100, 100, 100),
			golden: false,
			dead:   false,
		},
		{
			name: "missing previous value fires neither",
			set: &models.IndicatorSet{
				SMA:     map[int]*float64{20: fptr(101), 60: fptr(100)},
				PrevSMA: map[int]*float64{20: nil, 60: fptr(100)},
			},
			golden: false,
			dead:   false,
		},
		{
			name:   "nil set fires neither",
			set:    nil,
			golden: false,
			dead:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.golden, GoldenCross(tt.set, 20, 60))
			assert.Equal(t, tt.dead, DeadCross(tt.set, 20, 60))
			if tt.golden {
				assert.False(t, tt.dead, "crossovers are mutually exclusive")
			}
		})
	}
}

func TestRSITransitions(t *testing.T) {
	build := func(prev, cur float64) *models.IndicatorSet {
		return &models.IndicatorSet{RSI: fptr(cur), PrevRSI: fptr(prev)}
	}

	tests := []struct {
		name     string
		set      *models.IndicatorSet
		bounce   bool
		overheat bool
	}{
		{"bounce out of oversold", build(28, 35), true, false},
		{"bounce from exactly 30", build(30, 31), true, false},
		{"landing exactly on 30 is not a bounce", build(28, 30), false, false},
		{"entry into overbought", build(65, 72), false, true},
		{"landing exactly on 70 is an entry", build(69, 70), false, true},
		{"starting from exactly 70 is not an entry", build(70, 75), false, false},
		{"steady neutral", build(50, 55), false, false},
		{"nil previous", &models.IndicatorSet{RSI: fptr(75)}, false, false},
		{"nil set", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bounce, RSIBounce(tt.set))
			assert.Equal(t, tt.overheat, RSIOverheatEntry(tt.set))
		})
	}
}

func TestClassifyRSI(t *testing.T) {
	assert.Equal(t, "overbought", ClassifyRSI(70))
	assert.Equal(t, "overbought", ClassifyRSI(85.5))
	assert.Equal(t, "oversold", ClassifyRSI(30))
	assert.Equal(t, "oversold", ClassifyRSI(12))
	assert.Equal(t, "neutral", ClassifyRSI(69.9))
	assert.Equal(t, "neutral", ClassifyRSI(30.1))
}
