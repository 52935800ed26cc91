package fem

// QuadRule is a symmetric quadrature rule on the reference triangle.
// Weights sum to one; an integral is approximated as
// cellArea * sum_i w_i f(p_i).
type QuadRule struct {
	Points  [][2]float64
	Weights []float64
}

// Dunavant point groups, barycentric coordinates.
func perm3(l1, l2 float64, w float64, rule *QuadRule) {
	bary := [3][3]float64{
		{l1, l2, l2},
		{l2, l1, l2},
		{l2, l2, l1},
	}
	for _, b := range bary {
		rule.Points = append(rule.Points, [2]float64{b[1], b[2]})
		rule.Weights = append(rule.Weights, w)
	}
}

func perm6(l1, l2, l3 float64, w float64, rule *QuadRule) {
	bary := [6][3]float64{
		{l1, l2, l3}, {l1, l3, l2},
		{l2, l1, l3}, {l2, l3, l1},
		{l3, l1, l2}, {l3, l2, l1},
	}
	for _, b := range bary {
		rule.Points = append(rule.Points, [2]float64{b[1], b[2]})
		rule.Weights = append(rule.Weights, w)
	}
}

// TriQuadrature returns a rule exact for polynomials of the requested
// degree, up to the degree-six rule which is the highest carried here.
func TriQuadrature(degree int) (rule QuadRule) {
	switch {
	case degree <= 2:
		perm3(2./3., 1./6., 1./3., &rule)
	case degree <= 4:
		perm3(0.108103018168070, 0.445948490915965, 0.223381589678011, &rule)
		perm3(0.816847572980459, 0.091576213509771, 0.109951743655322, &rule)
	default:
		perm3(0.873821971016996, 0.063089014491502, 0.050844906370207, &rule)
		perm3(0.501426509658179, 0.249286745170910, 0.116786275726379, &rule)
		perm6(0.636502499121399, 0.310352451033785, 0.053145049844816, 0.082851075618374, &rule)
	}
	return
}

// EdgeQuadRule is a Gauss rule on the unit interval, used for boundary
// integrals; weights sum to one, the integral is edgeLength * sum.
type EdgeQuadRule struct {
	Points  []float64
	Weights []float64
}

func EdgeQuadrature() EdgeQuadRule {
	const c = 0.387298334620741688 // sqrt(3/5)/2
	return EdgeQuadRule{
		Points:  []float64{0.5 - c, 0.5, 0.5 + c},
		Weights: []float64{5. / 18., 8. / 18., 5. / 18.},
	}
}
