package primitives

import "filippo.io/edwards25519/field"

// ElligatorEncode hides an X25519 public key as 32 bytes indistinguishable
// from uniform randomness, per §4.1. tweak supplies the three bits of
// freedom the encoding has no other use for: bit 0 picks which of the two
// curve branches (the "v sign" of the paper) produced the representative —
// the decoder never needs to recover this — and bits 1-2 fill the two high
// bits of the last byte that a canonical field element never sets. ok is
// false for the roughly half of public keys that have no Elligator2
// representative; callers retry with a fresh ephemeral key pair in that
// case.
func ElligatorEncode(pk [ScalarSize]byte, tweak byte) (rep [32]byte, ok bool) {
	u, err := new(field.Element).SetBytes(pk[:])
	if err != nil {
		return rep, false
	}

	uPlusA := new(field.Element).Add(u, curveA)

	var num, den *field.Element

	if tweak&1 == 1 {
		// v negative: r^2 = -(u+A) / (2u)
		num = new(field.Element).Negate(uPlusA)
		den = new(field.Element).Add(u, u)
	} else {
		// v positive: r^2 = -u / (2(u+A))
		num = new(field.Element).Negate(u)
		den = new(field.Element).Add(uPlusA, uPlusA)
	}

	r, square := sqrtRatio(num, den)
	if !square {
		return rep, false
	}

	// Exactly one of {r, p-r} has bit 254 clear. Canonicalize to that root
	// before masking, or the mask below silently corrupts the other one.
	repBytes := r.Bytes()
	if repBytes[31]&0x40 != 0 {
		r.Negate(r)
		repBytes = r.Bytes()
	}

	copy(rep[:], repBytes)
	rep[31] &= 0x3f
	rep[31] |= (tweak & 0x06) << 5

	return rep, true
}

// ElligatorDecode recovers the X25519 public key hidden by ElligatorEncode.
// It is a total function: every 32-byte string decodes to some public key.
// It implements the full Elligator2 forward map, not just its first branch:
// w = -A/(1+2r^2) is the curve25519 x-coordinate when w^3+A*w^2+w is a
// square, but for the other half of r it lands on the twist instead, and
// the public key is -A-w there. original_source/covert/elliptic/elligator.py's
// hash_to_curve checks exactly this before returning u.
func ElligatorDecode(rep [32]byte) [ScalarSize]byte {
	rep[31] &= 0x3f

	r, err := new(field.Element).SetBytes(rep[:])
	if err != nil {
		// SetBytes only rejects length, never value; rep is always 32 bytes.
		panic(err)
	}

	r2 := new(field.Element).Square(r)
	twoR2 := new(field.Element).Add(r2, r2)

	one := elementFromUint64(1)
	denom := new(field.Element).Add(one, twoR2)

	w := new(field.Element).Invert(denom)
	w.Multiply(w, curveA)
	w.Negate(w)

	wPlusA := new(field.Element).Add(w, curveA)
	v3 := new(field.Element).Multiply(w, wPlusA)
	v3.Add(v3, one)
	v3.Multiply(v3, w)

	_, wasSquare := new(field.Element).SqrtRatio(v3, one)

	u := w
	if wasSquare == 0 {
		u = new(field.Element).Negate(new(field.Element).Add(curveA, w))
	}

	var pk [ScalarSize]byte
	copy(pk[:], u.Bytes())

	return pk
}
