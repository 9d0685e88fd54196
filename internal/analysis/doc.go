// Package analysis characterises trajectories after the fact.
//
//   - [LyapunovExponent]: largest exponent from two nearby rollouts
//   - [LyapunovSpectrum]: one estimate per perturbed coordinate
//   - [PowerSpectrum] and [DominantFrequency]: spectral content of a signal
//   - [NewPhasePortrait]: 2D phase space plot of two signals
//   - [NewPoincareSection]: points where one signal crosses a level
//   - [BifurcationDiagram]: peak values of a coordinate across a parameter sweep
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(ctx, p, sys, q, qd, 0, 5000, 1e-8)
//	if err == nil && lambda > 0 {
//	    // chaotic
//	}
package analysis
