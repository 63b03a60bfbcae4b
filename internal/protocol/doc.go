// Package protocol implements the ImageVault wire protocol shared by client
// and server: an authenticated-encryption channel over a byte stream, the
// key-establishment handshake, and the framed message layer on top.
//
// Every logical message travels as one record:
//
//	[4-byte big-endian ciphertext length][AES-256-GCM ciphertext]
//
// The ciphertext decrypts to [1-byte message tag][CBOR body]. A strictly
// increasing per-direction sequence number is folded into the GCM nonce and
// the additional data, so a replayed, reordered, dropped, or truncated
// record fails the tag check instead of decoding as valid-but-wrong data.
// Any such failure is permanent for the channel: the owning session must
// tear the connection down; there is no in-protocol resynchronization.
package protocol
