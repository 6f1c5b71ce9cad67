package primitives

import (
	"io"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
)

// lowOrderPoint generates the order-8 torsion subgroup of the Ed25519 curve
// group, derived the way original_source/covert/elliptic/ed.py derives its
// "L" constant: the point with y = sqrt(-(sqrt(d+1)+1)/d) and the even-x
// root, using the same d and even-x convention as montgomeryToEdwards.
var lowOrderPoint = func() *edwards25519.Point {
	one := elementFromUint64(1)

	sqrtDPlus1, ok := sqrtRatio(new(field.Element).Add(edwardsD, one), one)
	if !ok {
		panic("primitives: curve25519 d+1 is not square")
	}

	num := new(field.Element).Negate(new(field.Element).Add(sqrtDPlus1, one))

	y, ok := sqrtRatio(num, edwardsD)
	if !ok {
		panic("primitives: low-order point has no y coordinate")
	}

	y2 := new(field.Element).Square(y)
	xNum := new(field.Element).Subtract(y2, one)
	xDen := new(field.Element).Add(new(field.Element).Multiply(edwardsD, y2), one)

	x, ok := sqrtRatio(xNum, xDen)
	if !ok {
		panic("primitives: low-order point has no x coordinate")
	}

	var enc [32]byte
	copy(enc[:], y.Bytes())

	if x.Bytes()[0]&1 != 0 {
		enc[31] |= 0x80
	}

	p, err := new(edwards25519.Point).SetBytes(enc[:])
	if err != nil {
		panic(err)
	}

	return p
}()

// randomTorsionPoint returns a uniformly random element of the order-8
// subgroup generated by lowOrderPoint, i.e. one of the 8 points that vanish
// under multiplication by any cofactor-clamped scalar.
func randomTorsionPoint(rng io.Reader) (*edwards25519.Point, error) {
	var b [1]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return nil, err
	}

	var scalarBytes [32]byte
	scalarBytes[0] = b[0] % 8

	s, err := new(edwards25519.Scalar).SetCanonicalBytes(scalarBytes[:])
	if err != nil {
		return nil, err
	}

	return new(edwards25519.Point).ScalarMult(s, lowOrderPoint), nil
}

// DirtyPublicFromScalar computes the Montgomery public key for sk the way
// PublicFromScalar does, then adds a random element of the curve's order-8
// torsion subgroup before converting to Montgomery form. The result is
// usable as the other half of an X25519 key exchange exactly as the clean
// public key would be: a peer's clamped secret scalar always annihilates
// the added torsion component, so the shared secret is unaffected. Unlike
// the clean public key, the dirtied key does not always reduce to the
// identity when multiplied by the curve cofactor, which is what lets
// ElligatorEncode's output pass as uniform randomness per §8's
// indistinguishability property; see
// original_source/covert/elliptic/elligator.py's eghide/dirty_scalar.
func DirtyPublicFromScalar(rng io.Reader, sk [ScalarSize]byte) ([ScalarSize]byte, error) {
	var out [ScalarSize]byte

	a, err := new(edwards25519.Scalar).SetBytesWithClamping(sk[:])
	if err != nil {
		return out, err
	}

	clean := new(edwards25519.Point).ScalarBaseMult(a)

	torsion, err := randomTorsionPoint(rng)
	if err != nil {
		return out, err
	}

	dirty := new(edwards25519.Point).Add(clean, torsion)

	copy(out[:], dirty.BytesMontgomery())

	return out, nil
}
