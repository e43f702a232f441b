package cbc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = aes.BlockSize

	// IVSize is the size of the initialization vector in bytes.
	IVSize = aes.BlockSize

	// MaxPadLimit is the largest pad length whose count fits in one byte
	// while staying a multiple of BlockSize.
	MaxPadLimit = 240
)

var (
	ErrInvalidKey    = errors.New("cbc: invalid key size: must be 16, 24, or 32 bytes")
	ErrInvalidPad    = errors.New("cbc: max pad must be a positive multiple of 16, at most 240")
	ErrInvalidIV     = errors.New("cbc: iv must be 16 bytes")
	ErrNotAligned    = errors.New("cbc: ciphertext length is not a positive multiple of the block size")
	ErrBadPadding    = errors.New("cbc: bad padding")
	ErrShortRandomIV = errors.New("cbc: short read generating iv")
)

// Codec encrypts and decrypts with a fixed key and pad length.
type Codec struct {
	block   cipher.Block
	maxPad  int
	unpad   func([]byte) ([]byte, error)
	random  io.Reader
	lenient bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLenientPadding makes Decrypt strip padding the way legacy peers do:
// only the final byte is consulted and the pad bytes are not checked.
func WithLenientPadding() Option {
	return func(c *Codec) {
		c.unpad = UnpadLenient
		c.lenient = true
	}
}

// WithRandom replaces the IV source. Intended for tests.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) {
		c.random = r
	}
}

// New creates a Codec.
//
// Key must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
// maxPad must be a positive multiple of BlockSize no larger than MaxPadLimit.
func New(key []byte, maxPad int, opts ...Option) (*Codec, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKey
	}
	if maxPad <= 0 || maxPad%BlockSize != 0 || maxPad > MaxPadLimit {
		return nil, ErrInvalidPad
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		block:  block,
		maxPad: maxPad,
		unpad:  Unpad,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxPad returns the pad length the codec aligns plaintext to.
func (c *Codec) MaxPad() int {
	return c.maxPad
}

// Lenient reports whether the codec strips padding without validating it.
func (c *Codec) Lenient() bool {
	return c.lenient
}

// NewIV returns IVSize fresh random bytes.
func (c *Codec) NewIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, errors.Join(ErrShortRandomIV, err)
	}
	return iv, nil
}

// Encrypt pads plaintext and encrypts it under iv.
// The result length is a positive multiple of MaxPad.
func (c *Codec) Encrypt(iv, plaintext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrInvalidIV
	}
	padded := Pad(plaintext, c.maxPad)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts ciphertext under iv and strips the padding.
func (c *Codec) Decrypt(iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, ErrInvalidIV
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrNotAligned
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, ciphertext)
	return c.unpad(out)
}
