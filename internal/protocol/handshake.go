package protocol

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

const (
	saltSize      = 16
	handshakeSize = curve25519.PointSize + saltSize
)

// PSKSize is the required length of the pre-shared key file.
const PSKSize = 32

var (
	helloClient = []byte("imagevault/1 hello client")
	helloServer = []byte("imagevault/1 hello server")
)

// ErrHandshake reports a failed key establishment: the peer is unreachable,
// speaks something else, or does not hold the pre-shared key.
type ErrHandshake struct {
	Reason error
}

func (e *ErrHandshake) Error() string {
	return fmt.Sprintf("handshake failed: %v", e.Reason)
}

func (e *ErrHandshake) Unwrap() error { return common.ErrProtocolFault }

// ClientHandshake establishes per-session channel keys with the server.
//
// Each side contributes an ephemeral X25519 key and a random salt; the
// shared secret goes through HKDF-SHA256 together with a hash of the
// pre-shared key, producing independent keys per direction. The PSK never
// crosses the wire; a peer without it derives different keys, and its
// first sealed record fails authentication.
//
// The exchange is strictly half-duplex (client writes first), so it works
// over synchronous pipes as well as TCP.
func ClientHandshake(conn io.ReadWriter, psk []byte) (*SecureChannel, error) {
	pub, priv, salt, err := ephemeralKey()
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	if err := writeHello(conn, pub, salt); err != nil {
		return nil, &ErrHandshake{Reason: err}
	}
	peerPub, peerSalt, err := readHello(conn)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	sendKey, recvKey, err := deriveKeys(priv, peerPub, salt, peerSalt, psk, true)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	ch, err := NewSecureChannel(conn, sendKey, recvKey)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	// Confirmation round: proves both ends derived the same keys before any
	// application message is accepted.
	if err := ch.Send(helloClient); err != nil {
		return nil, &ErrHandshake{Reason: err}
	}
	got, err := ch.Receive()
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}
	if !bytes.Equal(got, helloServer) {
		return nil, &ErrHandshake{Reason: fmt.Errorf("unexpected server hello")}
	}

	return ch, nil
}

// ServerHandshake is the accepting side of ClientHandshake.
func ServerHandshake(conn io.ReadWriter, psk []byte) (*SecureChannel, error) {
	peerPub, peerSalt, err := readHello(conn)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	pub, priv, salt, err := ephemeralKey()
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}
	if err := writeHello(conn, pub, salt); err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	sendKey, recvKey, err := deriveKeys(priv, peerPub, peerSalt, salt, psk, false)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	ch, err := NewSecureChannel(conn, sendKey, recvKey)
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	got, err := ch.Receive()
	if err != nil {
		return nil, &ErrHandshake{Reason: err}
	}
	if !bytes.Equal(got, helloClient) {
		return nil, &ErrHandshake{Reason: fmt.Errorf("unexpected client hello")}
	}
	if err := ch.Send(helloServer); err != nil {
		return nil, &ErrHandshake{Reason: err}
	}

	return ch, nil
}

func ephemeralKey() (pub, priv, salt []byte, err error) {
	priv = common.GenerateRandByteArray(curve25519.ScalarSize)
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	salt = common.GenerateRandByteArray(saltSize)
	return pub, priv, salt, nil
}

func writeHello(w io.Writer, pub, salt []byte) error {
	msg := make([]byte, 0, handshakeSize)
	msg = append(msg, pub...)
	msg = append(msg, salt...)
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("sending key share: %w", err)
	}
	return nil
}

func readHello(r io.Reader) (pub, salt []byte, err error) {
	msg := make([]byte, handshakeSize)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, nil, fmt.Errorf("reading key share: %w", err)
	}
	return msg[:curve25519.PointSize], msg[curve25519.PointSize:], nil
}

// deriveKeys computes the two direction keys. clientSalt/serverSalt are
// ordered by role so both sides feed HKDF identical input. The PSK hash in
// the info string authenticates the exchange.
func deriveKeys(priv, peerPub, clientSalt, serverSalt, psk []byte, isClient bool) (sendKey, recvKey []byte, err error) {
	if len(psk) != PSKSize {
		return nil, nil, fmt.Errorf("pre-shared key must be %d bytes, got %d", PSKSize, len(psk))
	}

	shared, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, nil, fmt.Errorf("computing shared secret: %w", err)
	}

	hkdfSalt := make([]byte, 0, 2*saltSize)
	hkdfSalt = append(hkdfSalt, clientSalt...)
	hkdfSalt = append(hkdfSalt, serverSalt...)

	pskHash := sha256.Sum256(psk)

	c2s, err := expandKey(shared, hkdfSalt, pskHash[:], "client-to-server")
	if err != nil {
		return nil, nil, err
	}
	s2c, err := expandKey(shared, hkdfSalt, pskHash[:], "server-to-client")
	if err != nil {
		return nil, nil, err
	}

	if isClient {
		return c2s, s2c, nil
	}
	return s2c, c2s, nil
}

func expandKey(secret, salt, pskHash []byte, direction string) ([]byte, error) {
	info := make([]byte, 0, len("imagevault/1 ")+len(direction)+1+len(pskHash))
	info = append(info, "imagevault/1 "...)
	info = append(info, direction...)
	info = append(info, ' ')
	info = append(info, pskHash...)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", direction, err)
	}
	return key, nil
}
