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

// Package secretsharing implements Shamir's Secret Sharing Scheme.
//
// A secret is divided into N shares so that any M of them (the threshold)
// reconstruct it while M-1 shares reveal nothing. The secret is the constant
// term of a random polynomial of degree M-1:
//
//	p(x) = a0 + a1*x + a2*x^2 + ... + a(M-1)*x^(M-1)
//
// Share i is the point (i, p(i)); Combine interpolates p(0).
//
// # Schemes
//
// SchemeGF256 (the default) runs the polynomial byte-wise over GF(2^8) with the
// AES reduction polynomial. A share is one x-coordinate byte followed by one
// y byte per secret byte, so a 44-byte secret yields 45-byte shares.
//
// SchemePrime delegates to sssa-golang, which works over a 256-bit prime
// field. Its shares are the library's base64 share strings and are much
// longer, but the scheme interoperates with other sssa implementations.
//
// # Usage Example
//
//	s, err := secretsharing.NewShamir(&secretsharing.ShareConfig{
//	    Threshold:   2,
//	    TotalShares: 3,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	shares, err := s.Split([]byte("my secret data"))
//	...
//	secret, err := s.Combine([]secretsharing.Share{shares[0], shares[2]})
package secretsharing
