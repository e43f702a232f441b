// Package cbc provides AES-CBC encryption with block-multiple padding.
//
// Plaintext is padded to a multiple of a configurable maximum pad length
// (itself a multiple of the AES block size) and encrypted with a
// caller-supplied 16-byte IV. The padding extends PKCS#5: every pad byte
// holds the pad length, and a full pad is appended when the input is
// already aligned.
//
// Usage:
//
//	codec, err := cbc.New(key, 16)
//	iv, err := codec.NewIV()
//	ct, err := codec.Encrypt(iv, plaintext)
//	pt, err := codec.Decrypt(iv, ct)
//
// A Codec is safe for concurrent use.
package cbc
