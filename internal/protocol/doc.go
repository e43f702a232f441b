// Package protocol implements the pointerd wire format and message vocabulary.
//
// Every datagram is laid out as
//
//	IV (16 bytes, cleartext) || AES-CBC( seq (4 bytes, big-endian) || message )
//
// where message is a short UTF-8 token such as "OPEN" or "M 3,-2". The
// ciphertext is padded so every frame from a given peer has the same size.
//
// Frame/Unframe and PrependSequence/ParseSequence handle the two layers of
// framing. Codec ties them to a cbc.Codec. Vocabulary holds the configurable
// message tokens and classifies decrypted payloads.
package protocol
