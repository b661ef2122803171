package dataset

// #region config
// SamplerConfig bounds progressive-testing sample sizes.
type SamplerConfig struct {
	// MaxProgressive caps how many previously seen examples a
	// progressive test may replay.
	MaxProgressive int
}

// DefaultSamplerConfig returns the sampler defaults.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{MaxProgressive: 20}
}

// #endregion config

// #region sampler

// Sampler hands out batches of examples in dataset order and tracks
// the cumulative set of examples the controller has seen.
type Sampler struct {
	examples []Example
	next     int
	config   SamplerConfig
}

// NewSampler creates a Sampler over the given examples.
func NewSampler(examples []Example, config SamplerConfig) *Sampler {
	return &Sampler{examples: examples, config: config}
}

// Restore advances the sampler past the first n examples, used when
// resuming a run whose state records ExamplesSeen.
func (s *Sampler) Restore(seen int) {
	if seen < 0 {
		seen = 0
	}
	if seen > len(s.examples) {
		seen = len(s.examples)
	}
	s.next = seen
}

// Sample returns the next batch of up to n unseen examples. Once the
// dataset is exhausted it wraps and re-serves earlier examples so the
// loop can keep iterating on a small dataset.
func (s *Sampler) Sample(n int) []Example {
	if n <= 0 || len(s.examples) == 0 {
		return nil
	}
	batch := make([]Example, 0, n)
	for len(batch) < n {
		if s.next >= len(s.examples) {
			// Wrap: every example has been seen at least once.
			remaining := n - len(batch)
			for i := 0; i < remaining && i < len(s.examples); i++ {
				batch = append(batch, s.examples[i])
			}
			return batch
		}
		batch = append(batch, s.examples[s.next])
		s.next++
	}
	return batch
}

// Seen returns all examples served so far, capped by MaxProgressive,
// most recent first. Progressive tests replay these.
func (s *Sampler) Seen() []Example {
	count := s.next
	if count > s.config.MaxProgressive {
		count = s.config.MaxProgressive
	}
	out := make([]Example, 0, count)
	for i := s.next - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, s.examples[i])
	}
	return out
}

// SeenCount reports how many distinct examples have been served.
func (s *Sampler) SeenCount() int {
	return s.next
}

// Total reports the dataset size.
func (s *Sampler) Total() int {
	return len(s.examples)
}

// #endregion sampler
