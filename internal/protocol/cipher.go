package protocol

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

const (
	// KeySize is the size of one direction key (AES-256).
	KeySize = 32

	gcmNonceSize = 12
	lengthSize   = 4

	// DefaultMaxMessageSize bounds a single plaintext message. Image uploads
	// ride inside one record, so this must comfortably exceed the largest
	// accepted image.
	DefaultMaxMessageSize = 16 << 20
)

// SecureChannel wraps a byte stream with per-record authenticated encryption
// and strict ordering. Each direction uses its own key and its own sequence
// counter; the counter is the low 8 bytes of the GCM nonce and is also bound
// as additional data. Counters never repeat within a session because keys
// are per-session.
//
// A SecureChannel is owned by a single goroutine; it is not safe for
// concurrent use.
type SecureChannel struct {
	conn io.ReadWriter

	seal cipher.AEAD // our direction
	open cipher.AEAD // peer direction

	sendSeq uint64
	recvSeq uint64

	maxMessage uint32

	// failure, once set, is returned by every subsequent Send and Receive.
	failure error
}

// NewSecureChannel builds a channel over conn with the given direction keys.
// sendKey encrypts outbound records, recvKey decrypts inbound ones; the two
// peers pass them in swapped order. Keys must be KeySize bytes.
func NewSecureChannel(conn io.ReadWriter, sendKey, recvKey []byte) (*SecureChannel, error) {
	seal, err := newAEAD(sendKey)
	if err != nil {
		return nil, err
	}
	open, err := newAEAD(recvKey)
	if err != nil {
		return nil, err
	}
	return &SecureChannel{
		conn:       conn,
		seal:       seal,
		open:       open,
		maxMessage: DefaultMaxMessageSize,
	}, nil
}

// SetMaxMessageSize overrides the plaintext size bound for inbound records.
func (c *SecureChannel) SetMaxMessageSize(n uint32) {
	c.maxMessage = n
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("channel key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seqNonce(seq uint64) (nonce [gcmNonceSize]byte) {
	binary.BigEndian.PutUint64(nonce[gcmNonceSize-8:], seq)
	return nonce
}

// Send encrypts plaintext under the next outbound sequence number and writes
// it as one length-prefixed record. An I/O error is permanent: the channel
// is unusable afterwards because the peer's expected sequence can no longer
// be established.
func (c *SecureChannel) Send(plaintext []byte) error {
	if c.failure != nil {
		return c.failure
	}
	if uint64(len(plaintext)) > uint64(c.maxMessage) {
		return fmt.Errorf("message of %d bytes exceeds limit %d", len(plaintext), c.maxMessage)
	}

	nonce := seqNonce(c.sendSeq)
	ciphertext := c.seal.Seal(nil, nonce[:], plaintext, nonce[gcmNonceSize-8:])

	record := make([]byte, lengthSize+len(ciphertext))
	binary.BigEndian.PutUint32(record, uint32(len(ciphertext)))
	copy(record[lengthSize:], ciphertext)

	if _, err := c.conn.Write(record); err != nil {
		c.failure = fmt.Errorf("%w: writing record: %v", common.ErrProtocolFault, err)
		return c.failure
	}

	c.sendSeq++
	return nil
}

// Receive reads one record and decrypts it under the next expected inbound
// sequence number. It returns io.EOF only for a clean end of stream at a
// record boundary. Every other failure (short read, oversized length,
// failed tag check) wraps common.ErrProtocolFault and is permanent.
func (c *SecureChannel) Receive() ([]byte, error) {
	if c.failure != nil {
		return nil, c.failure
	}

	var lengthBuf [lengthSize]byte
	if _, err := io.ReadFull(c.conn, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			// Peer closed between records; not a fault, but terminal.
			c.failure = io.EOF
			return nil, io.EOF
		}
		c.failure = fmt.Errorf("%w: reading record length: %v", common.ErrProtocolFault, err)
		return nil, c.failure
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > c.maxMessage+uint32(c.open.Overhead()) {
		c.failure = fmt.Errorf("%w: record of %d bytes exceeds limit", common.ErrProtocolFault, length)
		return nil, c.failure
	}

	ciphertext := make([]byte, length)
	if _, err := io.ReadFull(c.conn, ciphertext); err != nil {
		c.failure = fmt.Errorf("%w: reading record body: %v", common.ErrProtocolFault, err)
		return nil, c.failure
	}

	nonce := seqNonce(c.recvSeq)
	plaintext, err := c.open.Open(nil, nonce[:], ciphertext, nonce[gcmNonceSize-8:])
	if err != nil {
		c.failure = fmt.Errorf("%w: record failed authentication at seq %d", common.ErrProtocolFault, c.recvSeq)
		return nil, c.failure
	}

	c.recvSeq++
	return plaintext, nil
}
