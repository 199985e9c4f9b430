package markov

import "math"

// Reinforce boosts unlikely transitions: every candidate whose
// probability is below threshold is multiplied by 2^factor, then the
// distribution is normalized again. A factor or threshold of 0 leaves
// the probabilities as they are.
func Reinforce(d Distribution, factor, threshold float64) Distribution {
	p := d.Normalize()
	if factor == 0 || threshold <= 0 {
		return p
	}
	gain := math.Pow(2, factor)
	for i, c := range p.candidates {
		if c.Weight < threshold {
			p.candidates[i].Weight = c.Weight * gain
		}
	}
	return p.Normalize()
}

// Reinforcer returns Reinforce bound to a factor and threshold, in the
// shape the sampler expects.
func Reinforcer(factor, threshold float64) func(Distribution) Distribution {
	return func(d Distribution) Distribution {
		return Reinforce(d, factor, threshold)
	}
}
