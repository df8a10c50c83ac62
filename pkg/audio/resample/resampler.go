// ABOUTME: Nearest-neighbor resampler for converting audio sample rates
// ABOUTME: Used to decimate captured audio to 16kHz before encoding
package resample

// Resampler performs nearest-neighbor decimation between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
}

// New creates a new resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
	}
}

// Resample converts a whole buffer from the input rate to the output rate.
// The input is not modified; a new slice is always returned.
func (r *Resampler) Resample(input []float32) []float32 {
	if r.inputRate <= 0 || r.outputRate <= 0 || r.inputRate == r.outputRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	n := r.OutputSamplesNeeded(len(input))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := int(int64(i) * int64(r.inputRate) / int64(r.outputRate))
		if src >= len(input) {
			src = len(input) - 1
		}
		out[i] = input[src]
	}
	return out
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	if r.inputRate <= 0 || r.outputRate <= 0 {
		return inputSamples
	}
	return int(int64(inputSamples) * int64(r.outputRate) / int64(r.inputRate))
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }
