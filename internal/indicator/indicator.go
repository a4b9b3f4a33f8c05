// Package indicator provides the technical indicators used by the built-in
// strategies. All functions return slices aligned to the input length, with
// NaN for warmup positions where the indicator is not yet defined.
package indicator

import "math"

// SMA computes the simple moving average over the last p points.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= x[i-p]
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EMA computes the exponential moving average with smoothing 2/(p+1),
// seeded with the SMA of the first p points.
func EMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	if len(x) < p {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / float64(p+1)
	var seed float64
	for i := 0; i < p; i++ {
		seed += x[i]
		if i < p-1 {
			out[i] = math.NaN()
		}
	}
	out[p-1] = seed / float64(p)
	for i := p; i < len(x); i++ {
		out[i] = (x[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI computes the relative strength index over period p using Wilder
// smoothing. Values range 0-100; a flat series with no losses reads 100.
func RSI(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(x) <= p {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= p; i++ {
		d := x[i] - x[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(p)
	avgLoss /= float64(p)
	out[p] = rsiValue(avgGain, avgLoss)

	for i := p + 1; i < len(x); i++ {
		d := x[i] - x[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MeanStd computes the rolling mean and population standard deviation over
// window p, used for Bollinger bands.
func MeanStd(x []float64, p int) (mean, std []float64) {
	if p <= 0 {
		return nil, nil
	}
	mean = SMA(x, p)
	std = make([]float64, len(x))
	for i := range x {
		if i < p-1 {
			std[i] = math.NaN()
			continue
		}
		var ss float64
		for j := i - p + 1; j <= i; j++ {
			d := x[j] - mean[i]
			ss += d * d
		}
		std[i] = math.Sqrt(ss / float64(p))
	}
	return mean, std
}

// MACD computes the MACD line (EMA(fast) − EMA(slow)), its signal line
// (EMA(signal) of the MACD line), and the histogram (macd − signal).
func MACD(x []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	fastEMA := EMA(x, fast)
	slowEMA := EMA(x, slow)
	macd = make([]float64, len(x))
	for i := range x {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	// The MACD line is undefined during the slow EMA warmup; seed the signal
	// EMA from the first defined point.
	sig = make([]float64, len(x))
	hist = make([]float64, len(x))
	for i := range sig {
		sig[i] = math.NaN()
		hist[i] = math.NaN()
	}
	first := slow - 1
	if first < 0 || first >= len(x) {
		return macd, sig, hist
	}
	defined := macd[first:]
	sigDefined := EMA(defined, signal)
	for i, v := range sigDefined {
		sig[first+i] = v
		if !math.IsNaN(v) {
			hist[first+i] = macd[first+i] - v
		}
	}
	return macd, sig, hist
}

// Highest returns the rolling maximum over window p.
func Highest(x []float64, p int) []float64 {
	return rollingExtreme(x, p, func(a, b float64) bool { return a > b })
}

// Lowest returns the rolling minimum over window p.
func Lowest(x []float64, p int) []float64 {
	return rollingExtreme(x, p, func(a, b float64) bool { return a < b })
}

func rollingExtreme(x []float64, p int, better func(a, b float64) bool) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	for i := range x {
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		best := x[i-p+1]
		for j := i - p + 2; j <= i; j++ {
			if better(x[j], best) {
				best = x[j]
			}
		}
		out[i] = best
	}
	return out
}

// Crossover reports the crossing of a over b at index i: +1 when a crosses
// above b, -1 when a crosses below, 0 otherwise (including warmup NaNs).
func Crossover(a, b []float64, i int) int {
	if i < 1 || i >= len(a) || i >= len(b) {
		return 0
	}
	prevA, prevB, curA, curB := a[i-1], b[i-1], a[i], b[i]
	if math.IsNaN(prevA) || math.IsNaN(prevB) || math.IsNaN(curA) || math.IsNaN(curB) {
		return 0
	}
	if prevA <= prevB && curA > curB {
		return 1
	}
	if prevA >= prevB && curA < curB {
		return -1
	}
	return 0
}
