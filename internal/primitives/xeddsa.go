package primitives

import (
	"crypto/sha512"
	"io"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
)

// SignatureSize is the length in bytes of an XEd25519 signature.
const SignatureSize = 64

// edwardsD is the Edwards25519 curve parameter d = -121665/121666.
var edwardsD = func() *field.Element {
	a := elementFromUint64(121665)
	b := elementFromUint64(121666)

	d := new(field.Element).Invert(b)
	d.Multiply(d, a)
	d.Negate(d)

	return d
}()

// montgomeryToEdwards converts an X25519 (Montgomery u-coordinate) public
// key into its birationally-equivalent Ed25519 compressed point, choosing
// the root with even x so that the encoding is a deterministic function of
// u alone. XEdDSASign applies the same convention to the point it derives
// by scalar-multiplying the Edwards base point, so both sides of a
// signature agree on the same 32 bytes for a given key pair.
func montgomeryToEdwards(u [ScalarSize]byte) (edPub [32]byte, ok bool) {
	uField, err := new(field.Element).SetBytes(u[:])
	if err != nil {
		return edPub, false
	}

	one := elementFromUint64(1)

	// y = (u-1)/(u+1)
	uMinus1 := new(field.Element).Subtract(uField, one)
	uPlus1 := new(field.Element).Add(uField, one)
	uPlus1Inv := new(field.Element).Invert(uPlus1)
	y := new(field.Element).Multiply(uMinus1, uPlus1Inv)

	// x^2 = (y^2-1) / (d*y^2+1)
	y2 := new(field.Element).Square(y)
	num := new(field.Element).Subtract(y2, one)
	den := new(field.Element).Multiply(edwardsD, y2)
	den.Add(den, one)

	x, square := sqrtRatio(num, den)
	if !square {
		return edPub, false
	}

	xBytes := x.Bytes()
	if xBytes[0]&1 == 1 {
		x.Negate(x)
	}

	copy(edPub[:], y.Bytes())
	// The even-x root always encodes with sign bit 0; nothing further to set.

	return edPub, true
}

// XEdDSASign produces a 64-byte signature of msg using the Montgomery
// secret scalar sk, per §4.5/§4.1. sk is the same 32-byte clamped scalar
// used for X25519; XEdDSA reuses it directly as an Ed25519 scalar, forcing
// the corresponding public point to have an even x-coordinate by negating
// the scalar when necessary.
func XEdDSASign(rng io.Reader, sk [ScalarSize]byte, msg []byte) ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte

	a, err := new(edwards25519.Scalar).SetBytesWithClamping(sk[:])
	if err != nil {
		return sig, err
	}

	A := new(edwards25519.Point).ScalarBaseMult(a)
	aBytes := A.Bytes()

	if aBytes[31]&0x80 != 0 {
		a = new(edwards25519.Scalar).Negate(a)
		aBytes[31] &^= 0x80
	}

	z, err := RandomBytes(rng, 64)
	if err != nil {
		return sig, err
	}

	nonceSeed := sha512.New()
	var domain [32]byte
	for i := range domain {
		domain[i] = 0xfe
	}
	_, _ = nonceSeed.Write(domain[:])
	_, _ = nonceSeed.Write(a.Bytes())
	_, _ = nonceSeed.Write(z)
	_, _ = nonceSeed.Write(msg)

	r, err := new(edwards25519.Scalar).SetUniformBytes(nonceSeed.Sum(nil))
	if err != nil {
		return sig, err
	}

	R := new(edwards25519.Point).ScalarBaseMult(r)
	RBytes := R.Bytes()

	hh := sha512.New()
	_, _ = hh.Write(RBytes)
	_, _ = hh.Write(aBytes)
	_, _ = hh.Write(msg)

	h, err := new(edwards25519.Scalar).SetUniformBytes(hh.Sum(nil))
	if err != nil {
		return sig, err
	}

	s := new(edwards25519.Scalar).MultiplyAdd(h, a, r)

	copy(sig[:32], RBytes)
	copy(sig[32:], s.Bytes())

	return sig, nil
}

// XEdDSAVerify reports whether sig is a valid XEdDSA signature of msg under
// the Montgomery public key pk.
func XEdDSAVerify(pk [ScalarSize]byte, msg []byte, sig [SignatureSize]byte) bool {
	aBytes, ok := montgomeryToEdwards(pk)
	if !ok {
		return false
	}

	A, err := new(edwards25519.Point).SetBytes(aBytes[:])
	if err != nil {
		return false
	}

	s, err := new(edwards25519.Scalar).SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}

	hh := sha512.New()
	_, _ = hh.Write(sig[:32])
	_, _ = hh.Write(aBytes[:])
	_, _ = hh.Write(msg)

	h, err := new(edwards25519.Scalar).SetUniformBytes(hh.Sum(nil))
	if err != nil {
		return false
	}

	negH := new(edwards25519.Scalar).Negate(h)

	RCheck := new(edwards25519.Point).VarTimeDoubleScalarBaseMult(negH, A, s)

	var R [32]byte
	copy(R[:], sig[:32])

	return string(RCheck.Bytes()) == string(R[:])
}
