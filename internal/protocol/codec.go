package protocol

import (
	"errors"
	"fmt"

	"github.com/yndnr/pointerd/internal/core/domain"
	"github.com/yndnr/pointerd/pkg/crypto/cbc"
)

// Codec seals outbound messages into datagrams and opens inbound ones.
// It is safe for concurrent use.
type Codec struct {
	cipher *cbc.Codec
}

// NewCodec creates a Codec over an existing cipher.
func NewCodec(cipher *cbc.Codec) *Codec {
	return &Codec{cipher: cipher}
}

// NewCodecForPacket creates a Codec whose frames are packetSize bytes long
// for any message shorter than packetSize-IVSize-SequenceSize.
func NewCodecForPacket(key []byte, packetSize int, opts ...cbc.Option) (*Codec, error) {
	c, err := cbc.New(key, packetSize-IVSize, opts...)
	if err != nil {
		if errors.Is(err, cbc.ErrInvalidKey) {
			return nil, domain.ErrInvalidKey.WithCause(err)
		}
		return nil, domain.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("packet size %d", packetSize)).WithCause(err)
	}
	return NewCodec(c), nil
}

// PacketSize returns the datagram size produced for short messages.
func (c *Codec) PacketSize() int {
	return IVSize + c.cipher.MaxPad()
}

// Seal frames msg under seq with a fresh IV.
func (c *Codec) Seal(seq uint32, msg []byte) ([]byte, error) {
	iv, err := c.cipher.NewIV()
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("generate iv").WithCause(err)
	}
	ct, err := c.cipher.Encrypt(iv, PrependSequence(seq, msg))
	if err != nil {
		return nil, domain.ErrCrypto.WithDetails("encrypt").WithCause(err)
	}
	return Frame(iv, ct), nil
}

// Open decrypts a datagram. Errors are *domain.DomainError values with
// PD-FRAME or PD-CRYPTO codes.
func (c *Codec) Open(datagram []byte) (WireMessage, error) {
	iv, ct, err := Unframe(datagram)
	if err != nil {
		return WireMessage{}, err
	}
	pt, err := c.cipher.Decrypt(iv, ct)
	if err != nil {
		if errors.Is(err, cbc.ErrBadPadding) {
			return WireMessage{}, domain.ErrBadPadding.WithCause(err)
		}
		return WireMessage{}, domain.ErrCrypto.WithDetails("decrypt").WithCause(err)
	}
	seq, msg, err := ParseSequence(pt)
	if err != nil {
		return WireMessage{}, err
	}
	return WireMessage{Seq: seq, Payload: msg}, nil
}
