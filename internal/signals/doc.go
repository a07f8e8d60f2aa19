// Package signals turns sampled frames into weak actor and studio evidence by
// matching image fingerprints against the reference snapshot. Signals bound
// their own false-positive volume through a confidence floor; fusion decides
// what the evidence is worth.
package signals
