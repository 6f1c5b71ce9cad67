package primitives

import "filippo.io/edwards25519/field"

// curveA is the Montgomery curve25519 coefficient A in v^2 = u^3 + A*u^2 + u.
var curveA = elementFromUint64(486662)

// elementFromUint64 builds a field element from a small non-negative integer.
func elementFromUint64(v uint64) *field.Element {
	var buf [32]byte

	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}

	e, err := new(field.Element).SetBytes(buf[:])
	if err != nil {
		panic(err)
	}

	return e
}

// sqrtRatio returns a field element equal to sqrt(num/den) mod p, and true,
// if that ratio is a quadratic residue; otherwise it returns false. It
// delegates the non-linear work to field.Element.SqrtRatio, the same
// ristretto255-style routine the field package exports and documents,
// rather than detouring through math/big.Int.ModSqrt.
func sqrtRatio(num, den *field.Element) (*field.Element, bool) {
	r, wasSquare := new(field.Element).SqrtRatio(num, den)
	if wasSquare == 0 {
		return nil, false
	}

	return r, true
}
