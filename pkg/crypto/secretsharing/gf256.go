// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package secretsharing

// GF(256) arithmetic using AES's finite field representation.
// The field is defined by the irreducible polynomial x^8 + x^4 + x^3 + x + 1.

// gfAdd performs addition in GF(256), which is XOR.
func gfAdd(a, b byte) byte {
	return a ^ b
}

// gfSub performs subtraction in GF(256), which is also XOR.
func gfSub(a, b byte) byte {
	return a ^ b
}

// gfMul performs multiplication in GF(256).
func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExpTable[(int(gfLogTable[a])+int(gfLogTable[b]))%255]
}

// gfInverse computes the multiplicative inverse in GF(256). Callers guarantee
// a != 0 by rejecting duplicate share indices.
func gfInverse(a byte) byte {
	if a == 0 {
		panic("division by zero in GF(256)")
	}
	return gfExpTable[255-int(gfLogTable[a])]
}

var (
	gfLogTable [256]byte
	gfExpTable [256]byte
)

func init() {
	// Generator 0x03, reduction polynomial 0x11B
	var x byte = 1
	for i := 0; i < 255; i++ {
		gfExpTable[i] = x
		gfLogTable[x] = byte(i)
		x = gfMultiply(x, 0x03)
	}
	gfExpTable[255] = gfExpTable[0]
}

// gfMultiply is the peasant multiplication used to build the tables.
func gfMultiply(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		highBit := a & 0x80
		a <<= 1
		if highBit != 0 {
			a ^= 0x1B
		}
		b >>= 1
	}
	return p
}
