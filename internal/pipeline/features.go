package pipeline

import (
	"math"

	"linewatch/internal/models"
)

// Engineered column names follow the <signal>_<feature> convention; every
// downstream stage refers to columns by these names.
const (
	colVibration   = "vibration"
	colTemperature = "temperature"
	colStrain      = "strain"
	colWindSpeed   = "wind_speed"

	suffixShortEWMA = "_short_ewma"
	suffixLongEWMA  = "_long_ewma"
	suffixStd       = "_rolling_std"
	suffixSlope     = "_rolling_slope"
	suffixStress    = "_stress"

	colBandpower = "vibration_bandpower"
)

// minBandpowerSamples is the floor below which the spectral estimate is
// statistically meaningless and the bandpower proxy stays NaN.
const minBandpowerSamples = 32

// ExtractFeatures computes the rolling feature set over normalized readings.
// Components are processed independently; within a component the rows must
// already be in ascending time order (Normalize guarantees this). Rows whose
// trailing window is not sufficiently filled carry NaN for the affected
// feature, never zero.
func ExtractFeatures(rows []models.SensorReading, cfg Config) *Frame {
	n := len(rows)
	f := NewFrame(n)

	signals := map[string][]float64{
		colVibration:   make([]float64, n),
		colTemperature: make([]float64, n),
		colStrain:      make([]float64, n),
	}
	wind := nanSlice(n)
	haveWind := false
	for i, r := range rows {
		signals[colVibration][i] = r.Vibration
		signals[colTemperature][i] = r.Temperature
		signals[colStrain][i] = r.Strain
		if r.WindSpeed != nil {
			wind[i] = *r.WindSpeed
			haveWind = true
		}
	}
	if haveWind {
		signals[colWindSpeed] = wind
	}

	groups := componentGroups(rows)

	for _, name := range []string{colVibration, colTemperature, colStrain, colWindSpeed} {
		vals, ok := signals[name]
		if !ok {
			continue
		}
		short := nanSlice(n)
		long := nanSlice(n)
		stress := nanSlice(n)
		std := nanSlice(n)
		slope := nanSlice(n)

		for _, g := range groups {
			seg := vals[g[0]:g[1]]
			ewmaInto(short[g[0]:g[1]], seg, cfg.ShortWin)
			ewmaInto(long[g[0]:g[1]], seg, cfg.LongWin)
			if name != colWindSpeed {
				rollingStdInto(std[g[0]:g[1]], seg, cfg.ShortWin)
				rollingSlopeInto(slope[g[0]:g[1]], seg, cfg.ShortWin)
			}
		}
		for i := range stress {
			stress[i] = short[i] - long[i] // NaN-propagating by construction
		}

		f.Set(name+suffixShortEWMA, short)
		f.Set(name+suffixLongEWMA, long)
		if name != colWindSpeed {
			f.Set(name+suffixStd, std)
			f.Set(name+suffixSlope, slope)
		}
		f.Set(name+suffixStress, stress)
	}

	bp := nanSlice(n)
	for _, g := range groups {
		bandpowerInto(bp[g[0]:g[1]], signals[colVibration][g[0]:g[1]], cfg)
	}
	f.Set(colBandpower, bp)

	return f
}

// ewmaInto writes the exponentially weighted moving average of vals with the
// given span into dst. NaN inputs do not reset the average: the previous
// value is carried, and output stays NaN until the first valid sample.
func ewmaInto(dst, vals []float64, span int) {
	alpha := 2.0 / (float64(span) + 1.0)
	cur := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			dst[i] = cur
			continue
		}
		if math.IsNaN(cur) {
			cur = v
		} else {
			cur = alpha*v + (1-alpha)*cur
		}
		dst[i] = cur
	}
}

// rollingStdInto writes the sample standard deviation of a trailing window of
// length win. The value is defined once at least half the window (rounded up)
// is filled with valid samples.
func rollingStdInto(dst, vals []float64, win int) {
	minPeriods := (win + 1) / 2
	if minPeriods < 2 {
		minPeriods = 2
	}
	for i := range vals {
		lo := i + 1 - win
		if lo < 0 {
			lo = 0
		}
		var sum, sumSq float64
		cnt := 0
		for _, v := range vals[lo : i+1] {
			if math.IsNaN(v) {
				continue
			}
			sum += v
			sumSq += v * v
			cnt++
		}
		if cnt < minPeriods {
			continue // leave NaN
		}
		mean := sum / float64(cnt)
		variance := (sumSq - float64(cnt)*mean*mean) / float64(cnt-1)
		if variance < 0 {
			variance = 0 // float round-off on constant windows
		}
		dst[i] = math.Sqrt(variance)
	}
}

// rollingSlopeInto writes the least-squares slope of the trailing win samples.
// Unlike rollingStdInto it requires the window to be completely filled; the
// asymmetry is deliberate, a half-filled slope is too noisy to act on.
func rollingSlopeInto(dst, vals []float64, win int) {
	for i := win - 1; i < len(vals); i++ {
		window := vals[i+1-win : i+1]
		s, ok := lsSlope(window)
		if ok {
			dst[i] = s
		}
	}
}

// lsSlope fits y = slope*t + b over t = 0..len-1 and reports the slope.
// Returns ok=false when any sample is NaN or fewer than 2 samples exist.
func lsSlope(vals []float64) (float64, bool) {
	n := len(vals)
	if n < 2 {
		return 0, false
	}
	var sumT, sumY, sumTY, sumTT float64
	for t, v := range vals {
		if math.IsNaN(v) {
			return 0, false
		}
		ft := float64(t)
		sumT += ft
		sumY += v
		sumTY += ft * v
		sumTT += ft * ft
	}
	fn := float64(n)
	denom := fn*sumTT - sumT*sumT
	if denom == 0 {
		return 0, false
	}
	return (fn*sumTY - sumT*sumY) / denom, true
}

// lsFit returns both slope and intercept of the least-squares line.
func lsFit(vals []float64) (slope, intercept float64, ok bool) {
	n := len(vals)
	if n < 2 {
		return 0, 0, false
	}
	slope, ok = lsSlope(vals)
	if !ok {
		return 0, 0, false
	}
	var sumT, sumY float64
	for t, v := range vals {
		sumT += float64(t)
		sumY += v
	}
	fn := float64(n)
	intercept = (sumY - slope*sumT) / fn
	return slope, intercept, true
}

// bandpowerInto writes the vibration bandpower proxy per row: a Welch-style
// spectral estimate of up to 2*psd_seg_len trailing samples, reduced to a
// scalar with the frequency bins weighted by a linear ramp from 0.5 at DC to
// 1.0 at Nyquist. Rows with fewer than minBandpowerSamples trailing samples
// stay NaN.
func bandpowerInto(dst, vals []float64, cfg Config) {
	maxTail := 2 * cfg.PSDSegLen
	for i := range vals {
		lo := i + 1 - maxTail
		if lo < 0 {
			lo = 0
		}
		tail := vals[lo : i+1]
		if len(tail) < minBandpowerSamples {
			continue
		}
		psd := welchPSD(tail, cfg.PSDSegLen, cfg.PSDOverlap)
		if psd == nil {
			continue
		}
		dst[i] = rampWeightedPower(psd)
	}
}

// welchPSD estimates the power spectral density by averaging Hann-windowed
// periodograms of overlapping segments. When the input is shorter than one
// segment, a single truncated segment is used.
func welchPSD(samples []float64, segLen, overlap int) []float64 {
	if segLen > len(samples) {
		segLen = len(samples)
		overlap = 0
	}
	step := segLen - overlap
	nBins := segLen/2 + 1
	psd := make([]float64, nBins)
	segs := 0
	for start := 0; start+segLen <= len(samples); start += step {
		accumulatePeriodogram(psd, samples[start:start+segLen])
		segs++
	}
	if segs == 0 {
		return nil
	}
	for k := range psd {
		psd[k] /= float64(segs)
	}
	return psd
}

// accumulatePeriodogram adds the Hann-windowed periodogram of one segment
// into psd. Absolute scaling is irrelevant downstream (the scaler
// standardizes the column), so normalization constants are omitted.
func accumulatePeriodogram(psd []float64, seg []float64) {
	n := len(seg)
	windowed := make([]float64, n)
	for j, v := range seg {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(j)/float64(n-1)))
		windowed[j] = v * w
	}
	for k := range psd {
		var re, im float64
		for j, v := range windowed {
			phase := 2 * math.Pi * float64(k) * float64(j) / float64(n)
			re += v * math.Cos(phase)
			im -= v * math.Sin(phase)
		}
		psd[k] += (re*re + im*im) / float64(n)
	}
}

// rampWeightedPower reduces a PSD to a scalar with bin weights ramping
// linearly from 0.5 to 1.0, so oscillatory (upper-band) energy dominates the
// proxy. The weight values are a fixed design constant; changing them shifts
// the CCI distribution and would force threshold recalibration.
func rampWeightedPower(psd []float64) float64 {
	if len(psd) == 1 {
		return psd[0]
	}
	var num, den float64
	last := float64(len(psd) - 1)
	for k, p := range psd {
		w := 0.5 + 0.5*float64(k)/last
		num += w * p
		den += w
	}
	return num / den
}
