// Package qsys is the one concrete, fully wired collaborator for package
// krotov's external interfaces: a dense complex generator, a piecewise
// RK4 propagator satisfying propagator.Handle, a two-level-system
// Trajectory, and the population-transfer J_T/chi pair of spec.md §8
// scenario S1 (Ĥ0 = -0.5 σz, Ĥ1 = σx).
package qsys

// Operator is an owned, dense, square complex generator: rows[i][j] is
// the (i,j) matrix element. Grounded on matrix.AdjacencyMatrix's 2-D
// owned-slice shape, rewritten for Hermitian complex128 generators
// instead of edge weights.
type Operator [][]complex128

// Dim returns the operator's dimension.
func (op Operator) Dim() int { return len(op) }

// Add returns a freshly allocated op+other.
func (op Operator) Add(other Operator) Operator {
	out := make(Operator, len(op))
	for i := range op {
		out[i] = make([]complex128, len(op[i]))
		for j := range op[i] {
			out[i][j] = op[i][j] + other[i][j]
		}
	}
	return out
}

// Scale returns a freshly allocated c*op.
func (op Operator) Scale(c complex128) Operator {
	out := make(Operator, len(op))
	for i := range op {
		out[i] = make([]complex128, len(op[i]))
		for j := range op[i] {
			out[i][j] = c * op[i][j]
		}
	}
	return out
}

// Transpose returns op's transpose (not conjugated).
func (op Operator) Transpose() Operator {
	n := len(op)
	out := make(Operator, n)
	for i := range out {
		out[i] = make([]complex128, n)
	}
	for i := range op {
		for j := range op[i] {
			out[j][i] = op[i][j]
		}
	}
	return out
}

// SigmaZ is the Pauli-Z operator, diag(1, -1).
func SigmaZ() Operator {
	return Operator{
		{1, 0},
		{0, -1},
	}
}

// SigmaX is the Pauli-X operator, the off-diagonal swap.
func SigmaX() Operator {
	return Operator{
		{0, 1},
		{1, 0},
	}
}

// TwoLevelHamiltonian holds the drift and control generators of spec.md
// §8 scenario S1: Ĥ(t) = H0 + eps(t)*H1.
type TwoLevelHamiltonian struct {
	H0 Operator
	H1 Operator
}

// DefaultTwoLevelHamiltonian returns H0 = -0.5*sigma_z, H1 = sigma_x, the
// literal worked example of spec.md §8 scenario S1.
func DefaultTwoLevelHamiltonian() TwoLevelHamiltonian {
	return TwoLevelHamiltonian{
		H0: SigmaZ().Scale(-0.5),
		H1: SigmaX(),
	}
}

// At evaluates H0 + eps*H1.
func (h TwoLevelHamiltonian) At(eps float64) Operator {
	return h.H0.Add(h.H1.Scale(complex(eps, 0)))
}
