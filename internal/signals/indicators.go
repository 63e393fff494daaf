// Package signals provides technical indicator calculations
package signals

import (
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// SMA calculates the simple moving average over the trailing period of an
// ascending-by-date series. Returns nil when the series is shorter than the
// period.
func SMA(points []models.PricePoint, period int) *float64 {
	if period <= 0 || len(points) < period {
		return nil
	}

	sum := 0.0
	for i := len(points) - period; i < len(points); i++ {
		sum += points[i].Close
	}
	avg := sum / float64(period)
	return &avg
}

// PrevSMA calculates the simple moving average one observation earlier in the
// same series. Returns nil when the series is too short.
func PrevSMA(points []models.PricePoint, period int) *float64 {
	if len(points) < 1 {
		return nil
	}
	return SMA(points[:len(points)-1], period)
}

// RSI calculates the relative strength index over the trailing period of an
// ascending-by-date series, using the simple average-gain/average-loss ratio:
// RSI = 100 - 100/(1+RS), RS = avgGain/avgLoss. Returns nil when fewer than
// period+1 points exist.
func RSI(points []models.PricePoint, period int) *float64 {
	if period <= 0 || len(points) < period+1 {
		return nil
	}

	var gains, losses float64
	for i := len(points) - period; i < len(points); i++ {
		change := points[i].Close - points[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	// A motionless series has no momentum either way; only all-gains pins
	// the index at 100.
	if gains == 0 && losses == 0 {
		v := 50.0
		return &v
	}
	if losses == 0 {
		v := 100.0
		return &v
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rs := avgGain / avgLoss
	v := 100 - (100 / (1 + rs))
	return &v
}

// PrevRSI calculates the relative strength index one observation earlier in
// the same series.
func PrevRSI(points []models.PricePoint, period int) *float64 {
	if len(points) < 1 {
		return nil
	}
	return RSI(points[:len(points)-1], period)
}

// ClassifyRSI classifies an RSI value. Boundaries are inclusive.
func ClassifyRSI(rsi float64) string {
	if rsi >= 70 {
		return "overbought"
	}
	if rsi <= 30 {
		return "oversold"
	}
	return "neutral"
}

// Compute derives the full indicator set for one instrument from its
// historical close series. Entries the series cannot support are nil.
func Compute(series models.HistoricalSeries, now time.Time) *models.IndicatorSet {
	set := &models.IndicatorSet{
		Ticker:     series.Ticker,
		Exchange:   series.Exchange,
		SMA:        make(map[int]*float64, len(models.IndicatorPeriods)),
		PrevSMA:    make(map[int]*float64, len(models.IndicatorPeriods)),
		ComputedAt: now,
	}

	for _, period := range models.IndicatorPeriods {
		set.SMA[period] = SMA(series.Points, period)
		set.PrevSMA[period] = PrevSMA(series.Points, period)
	}

	set.RSI = RSI(series.Points, models.RSIPeriod)
	set.PrevRSI = PrevRSI(series.Points, models.RSIPeriod)

	return set
}

// GoldenCross reports a strict upward crossover of the short moving average
// over the long one between yesterday and today: yesterday short ≤ long AND
// today short > long. Any missing value means no match.
func GoldenCross(set *models.IndicatorSet, short, long int) bool {
	curS, curL := set.SMAAt(short), set.SMAAt(long)
	prevS, prevL := set.PrevSMAAt(short), set.PrevSMAAt(long)
	if curS == nil || curL == nil || prevS == nil || prevL == nil {
		return false
	}
	return *prevS <= *prevL && *curS > *curL
}

// DeadCross is the mirror of GoldenCross: yesterday short ≥ long AND today
// short < long.
func DeadCross(set *models.IndicatorSet, short, long int) bool {
	curS, curL := set.SMAAt(short), set.SMAAt(long)
	prevS, prevL := set.PrevSMAAt(short), set.PrevSMAAt(long)
	if curS == nil || curL == nil || prevS == nil || prevL == nil {
		return false
	}
	return *prevS >= *prevL && *curS < *curL
}

// RSIBounce reports an exit from oversold territory: yesterday ≤ 30 AND
// today > 30. The boundary asymmetry against RSIOverheatEntry keeps a value
// sitting exactly on the boundary from matching both directions.
func RSIBounce(set *models.IndicatorSet) bool {
	if set == nil || set.RSI == nil || set.PrevRSI == nil {
		return false
	}
	return *set.PrevRSI <= 30 && *set.RSI > 30
}

// RSIOverheatEntry reports an entry into overbought territory: yesterday < 70
// AND today ≥ 70.
func RSIOverheatEntry(set *models.IndicatorSet) bool {
	if set == nil || set.RSI == nil || set.PrevRSI == nil {
		return false
	}
	return *set.PrevRSI < 70 && *set.RSI >= 70
}
