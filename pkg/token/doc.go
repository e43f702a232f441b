// Package token generates and checks control API bearer tokens.
//
// Token format:
//
//   - Prefix: pdt_ (4 characters)
//   - Body: 43 characters of Base64 RawURL encoded random bytes
//   - Total: 47 characters
//
// A configured token may be given either in the clear or as its hash,
// "sha256:" followed by 64 hex characters, so the server configuration
// need not hold the secret itself. Presented tokens are hashed and
// compared in constant time.
package token
