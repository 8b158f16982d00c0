// Package risk scores magnitude-based regulatory risk for a single stock
// from its trailing daily price/volume series, fundamentals, and day-trading
// ratio statistics. It reproduces the attention-stock clause thresholds
// (price surge, volume surge, turnover, day trading) over the raw series,
// independent of the bulletin-driven rule engine except for sharing the
// clause vocabulary in its explanation strings.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SharesPerLot converts TWSE share volume to lots.
const SharesPerLot = 1000

// TurnoverUnknown is the turnover-rate sentinel when shares outstanding are
// not known. Downstream rules treat it as "exclude from turnover-gated
// triggers", never as zero.
const TurnoverUnknown = -1.0

// Level is the resulting risk tier.
type Level string

const (
	LevelLow    Level = "低"
	LevelMedium Level = "中"
	LevelHigh   Level = "高"
)

// Bar is one daily OHLCV sample.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // shares
}

// Fundamentals carries the per-stock figures used by the turnover triggers.
// Shares <= 1 means shares outstanding are unknown.
type Fundamentals struct {
	Shares     int64
	PE         float64
	PB         float64
	MarketType string
}

// RatioState distinguishes a missing day-trading ratio from a zero one.
type RatioState int

const (
	RatioUnknown RatioState = iota // fetch failed or stock not covered
	RatioPending                   // not yet published for the target date
	RatioKnown
)

// DayTradeRatio is the day-trading share of total volume for the evaluation
// date, today plus the trailing 6-day average.
type DayTradeRatio struct {
	State    RatioState
	TodayPct float64
	Avg6Pct  float64
}

// Assessment is the scorer output merged into the per-stock summary row.
type Assessment struct {
	Level           Level
	TriggerMsg      string
	Triggered       bool
	CurrPrice       float64
	LimitPrice      float64 // warning ceiling for the 6-day price-change clause
	GapPct          float64 // distance to the ceiling, percent of current price
	CurrVolLots     int64
	LimitVolLots    int64 // warning ceiling for the volume-ratio clause
	TurnoverValueYi float64
	TurnoverRate    float64 // percent, TurnoverUnknown when shares unknown
	PE              float64
	PB              float64
	DayTradePct     float64
}

// Thresholds of the magnitude clauses, from the exchange's attention rules.
const (
	rise6Threshold      = 32.0
	rise6AltThreshold   = 25.0
	rise6AltMinDiff     = 50.0
	rise30Threshold     = 100.0
	rise60Threshold     = 130.0
	rise90Threshold     = 160.0
	volRatioThreshold   = 5.0
	dayTradeThreshold   = 60.0
	priceGapBase        = 100.0
	priceGapTierSize    = 500.0
	priceGapTierStep    = 25.0
	minTurnoverPct      = 0.1
	minVolumeLots       = 500
	minTurnoverValue    = 30_000_000
	bigTurnoverValue    = 500_000_000
	minDayTradeVolLots  = 5000
	minPriceForTriggers = 5.0
)

func pctChange(curr, ref float64) float64 {
	if ref == 0 {
		return 0
	}
	return (curr - ref) / ref * 100
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func mean(bars []Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}

// fallbackLevel is the horizon-driven tier used when no magnitude trigger
// fires: imminent regulatory action outranks price/volume magnitude, so two
// or fewer remaining days force high risk regardless of the series.
func fallbackLevel(daysToDisposition int) Level {
	switch {
	case daysToDisposition <= 2:
		return LevelHigh
	case daysToDisposition <= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Score evaluates one stock. history is ascending daily bars (ideally one
// year); daysToDisposition is the simulator output for the same evaluation
// date. Short or missing history degrades to the horizon-driven fallback
// tier rather than computing partial percentage changes.
func Score(history []Bar, fund Fundamentals, daysToDisposition int, dayTrade DayTradeRatio) Assessment {
	res := Assessment{
		Level:        LevelLow,
		GapPct:       999.0,
		TurnoverRate: TurnoverUnknown,
		PE:           fund.PE,
		PB:           fund.PB,
	}
	if dayTrade.State == RatioKnown {
		res.DayTradePct = dayTrade.TodayPct
	}

	if len(history) < 7 {
		res.Level = fallbackLevel(daysToDisposition)
		return res
	}

	last := history[len(history)-1]
	currClose := last.Close
	currVolShares := last.Volume
	currVolLots := int64(currVolShares / SharesPerLot)

	turnover := TurnoverUnknown
	if fund.Shares > 1 {
		turnover = currVolShares / float64(fund.Shares) * 100
	}
	turnoverValue := currClose * currVolShares

	res.CurrPrice = round(currClose, 2)
	res.CurrVolLots = currVolLots
	res.TurnoverRate = round(turnover, 2)
	res.TurnoverValueYi = round(turnoverValue/1e8, 2)

	if currClose < minPriceForTriggers {
		res.Level = fallbackLevel(daysToDisposition)
		return res
	}

	var triggers []string

	// Clause 1: 6-day price change, with the 25%-plus-absolute-delta
	// secondary condition.
	window7 := history[len(history)-7:]
	ref6 := window7[0].Close
	rise6 := pctChange(currClose, ref6)
	priceDiff6 := math.Abs(currClose - ref6)

	cond1 := rise6 > rise6Threshold
	cond2 := rise6 > rise6AltThreshold && priceDiff6 >= rise6AltMinDiff
	if cond1 {
		triggers = append(triggers, fmt.Sprintf("【第一款】6日漲%.1f%%(>32%%)", rise6))
	} else if cond2 {
		triggers = append(triggers, fmt.Sprintf("【第一款】6日漲%.1f%%且價差%.0f元", rise6, priceDiff6))
	}

	limitP1 := ref6 * (1 + rise6Threshold/100)
	finalLimit := limitP1
	if cond2 {
		limitP2 := ref6 * (1 + rise6AltThreshold/100)
		finalLimit = math.Min(limitP1, limitP2)
	}
	res.LimitPrice = round(finalLimit, 2)
	res.GapPct = round((finalLimit-currClose)/currClose*100, 1)

	// Clause 2: longer-horizon price changes.
	horizons := []struct {
		days      int
		threshold float64
	}{
		{30, rise30Threshold},
		{60, rise60Threshold},
		{90, rise90Threshold},
	}
	for _, h := range horizons {
		if len(history) >= h.days+1 {
			w := history[len(history)-h.days-1:]
			rise := pctChange(currClose, w[0].Close)
			if rise > h.threshold {
				triggers = append(triggers, fmt.Sprintf("【第二款】%d日漲%.0f%%", h.days, rise))
			}
		}
	}

	// Clause 3: price surge combined with volume expansion vs the trailing
	// 60-day average (excluding the most recent day).
	if len(history) >= 61 {
		avgVol60 := mean(history[len(history)-61 : len(history)-1])
		if avgVol60 > 0 {
			volRatio := currVolShares / avgVol60
			res.LimitVolLots = int64(avgVol60 * volRatioThreshold / SharesPerLot)
			if turnover >= minTurnoverPct && currVolLots >= minVolumeLots {
				if rise6 > rise6AltThreshold && volRatio > volRatioThreshold {
					triggers = append(triggers, fmt.Sprintf("【第三款】漲%.0f%%+量%.1f倍", rise6, volRatio))
				}
			}
		}
	}

	// Clause 4: price surge plus single-day turnover rate.
	if turnover > 10 && rise6 > rise6AltThreshold {
		triggers = append(triggers, fmt.Sprintf("【第四款】漲%.0f%%+轉%.0f%%", rise6, turnover))
	}

	// Clause 9: volume expansion with illiquidity gates.
	if len(history) >= 61 {
		avgVol60 := mean(history[len(history)-61 : len(history)-1])
		avgVol6 := mean(history[len(history)-6:])
		// An unknown turnover rate (-1) fails the first gate and is
		// thereby excluded, as required for the missing-shares sentinel.
		excluded := turnover < minTurnoverPct ||
			currVolLots < minVolumeLots || turnoverValue < minTurnoverValue
		if !excluded && avgVol60 > 0 {
			r1 := avgVol6 / avgVol60
			r2 := currVolShares / avgVol60
			if r1 > volRatioThreshold {
				triggers = append(triggers, fmt.Sprintf("【第九款】6日均量放大%.1f倍", r1))
			}
			if r2 > volRatioThreshold {
				triggers = append(triggers, fmt.Sprintf("【第九款】當日量放大%.1f倍", r2))
			}
		}
	}

	// Clause 10: 6-day accumulated turnover.
	if turnover > 0 {
		accVol6 := 0.0
		for _, b := range history[len(history)-6:] {
			accVol6 += b.Volume
		}
		accTurn := accVol6 / float64(fund.Shares) * 100
		if turnoverValue >= bigTurnoverValue && accTurn > 50 && turnover > 10 {
			triggers = append(triggers, fmt.Sprintf("【第十款】累轉%.0f%%", accTurn))
		}
	}

	// Clause 11: 6-day high-low spread vs the price-tier threshold.
	if len(history) >= 6 {
		window6 := history[len(history)-6:]
		high6, low6 := window6[0].High, window6[0].Low
		for _, b := range window6[1:] {
			high6 = math.Max(high6, b.High)
			low6 = math.Min(low6, b.Low)
		}
		gap := high6 - low6
		threshold := priceGapBase
		if currClose >= priceGapTierSize {
			tiers := math.Floor((currClose-priceGapTierSize)/priceGapTierSize) + 1
			threshold = priceGapBase + tiers*priceGapTierStep
		}
		if gap >= threshold {
			triggers = append(triggers, fmt.Sprintf("【第十一款】6日價差%.0f元(>門檻%.0f)", gap, threshold))
		}
	}

	// Clause 13: day-trading ratio, only when the ratio is actually
	// published for the date.
	if dayTrade.State == RatioKnown && dayTrade.Avg6Pct > dayTradeThreshold && dayTrade.TodayPct > dayTradeThreshold {
		dtVolLots := currVolShares * dayTrade.TodayPct / 100 / SharesPerLot
		excluded := turnover < 5 || turnoverValue < bigTurnoverValue || dtVolLots < minDayTradeVolLots
		if !excluded {
			triggers = append(triggers, fmt.Sprintf("【第十三款】當沖%.0f%%(6日%.0f%%)", dayTrade.TodayPct, dayTrade.Avg6Pct))
		}
	}

	if len(triggers) > 0 {
		res.Triggered = true
		res.Level = LevelHigh
		res.TriggerMsg = strings.Join(triggers, "且")
		return res
	}

	res.Level = fallbackLevel(daysToDisposition)
	return res
}
