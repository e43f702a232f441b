package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/pkg/crypto/cbc"
)

const (
	// IVSize is the length of the cleartext IV prefix.
	IVSize = cbc.IVSize

	// SequenceSize is the length of the big-endian sequence number.
	SequenceSize = 4
)

// WireMessage is a decrypted inbound message.
type WireMessage struct {
	Seq     uint32
	Payload []byte
}

// Frame concatenates iv and ciphertext.
func Frame(iv, ciphertext []byte) []byte {
	out := make([]byte, 0, len(iv)+len(ciphertext))
	out = append(out, iv...)
	return append(out, ciphertext...)
}

// Unframe splits a datagram into its IV and ciphertext.
// The returned slices alias b.
func Unframe(b []byte) (iv, ciphertext []byte, err error) {
	if len(b) < IVSize {
		return nil, nil, domain.ErrMalformedFrame.WithDetails(
			fmt.Sprintf("datagram is %d bytes, need at least %d", len(b), IVSize))
	}
	return b[:IVSize], b[IVSize:], nil
}

// PrependSequence encodes seq big-endian in front of msg.
func PrependSequence(seq uint32, msg []byte) []byte {
	out := make([]byte, SequenceSize, SequenceSize+len(msg))
	binary.BigEndian.PutUint32(out, seq)
	return append(out, msg...)
}

// ParseSequence splits a plaintext into its sequence number and message.
func ParseSequence(plaintext []byte) (uint32, []byte, error) {
	if len(plaintext) < SequenceSize {
		return 0, nil, domain.ErrMalformedFrame.WithDetails(
			fmt.Sprintf("plaintext is %d bytes, need at least %d", len(plaintext), SequenceSize))
	}
	return binary.BigEndian.Uint32(plaintext), plaintext[SequenceSize:], nil
}
