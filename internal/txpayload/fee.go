package txpayload

// Fee weighting schedule constants, following the shape used by the
// original implementation: a per-kernel weight plus a per-input and
// per-output weight, all multiplied by a fee-per-gram rate. This is
// richer than a flat fee and is what lets the split cycle decide
// whether a consolidation chunk's net output is positive.
const (
	KernelWeight = 20
	InputWeight  = 10
	OutputWeight = 15

	// DefaultFeePerGram is the standard fee rate. EstimateFee always takes
	// the rate from its caller; the workers pass the configured
	// FEE_PER_GRAM, whose default in internal/config is the same value.
	DefaultFeePerGram = 5

	// FeeBuffer is added on top of the payment total when locking funds,
	// to leave headroom for the eventual fee (spec §4.3 Cycle 1 Fresh).
	FeeBuffer = 200_000
)

// EstimateFee returns the fee, in base units, for a transaction with the
// given input and output counts at the given fee-per-gram rate.
func EstimateFee(feePerGram int64, inputs, outputs int) int64 {
	weight := int64(KernelWeight) + int64(inputs)*InputWeight + int64(outputs)*OutputWeight
	return feePerGram * weight
}
