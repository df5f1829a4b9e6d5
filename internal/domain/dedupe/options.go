package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithExpectedSize pre-sizes the seen set for roughly n identity keys.
func WithExpectedSize(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.expected = n
		}
	}
}
