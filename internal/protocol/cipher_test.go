package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// duplex is an in-memory transport end: writes land in out, reads drain in.
type duplex struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.out.Write(p) }

func newPair(t *testing.T) (*SecureChannel, *SecureChannel, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	c2s := &bytes.Buffer{}
	s2c := &bytes.Buffer{}

	keyA := bytes.Repeat([]byte{0x41}, KeySize)
	keyB := bytes.Repeat([]byte{0x42}, KeySize)

	client, err := NewSecureChannel(&duplex{in: s2c, out: c2s}, keyA, keyB)
	if err != nil {
		t.Fatalf("NewSecureChannel client: %v", err)
	}
	server, err := NewSecureChannel(&duplex{in: c2s, out: s2c}, keyB, keyA)
	if err != nil {
		t.Fatalf("NewSecureChannel server: %v", err)
	}
	return client, server, c2s, s2c
}

func TestSendReceive_RoundTrip(t *testing.T) {
	client, server, _, _ := newPair(t)

	for _, msg := range []string{"first", "second", ""} {
		if err := client.Send([]byte(msg)); err != nil {
			t.Fatalf("Send %q: %v", msg, err)
		}
		got, err := server.Receive()
		if err != nil {
			t.Fatalf("Receive %q: %v", msg, err)
		}
		if string(got) != msg {
			t.Fatalf("got %q, want %q", got, msg)
		}
	}
}

func TestReceive_ReplayRejected(t *testing.T) {
	client, server, c2s, _ := newPair(t)

	if err := client.Send([]byte("pay 1 dollar")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	record := make([]byte, c2s.Len())
	copy(record, c2s.Bytes())

	if _, err := server.Receive(); err != nil {
		t.Fatalf("first Receive: %v", err)
	}

	// Replay the identical record: the nonce now encodes seq 1, so the tag
	// check must fail.
	c2s.Write(record)
	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("replay accepted, err = %v", err)
	}
}

func TestReceive_ReorderRejected(t *testing.T) {
	client, server, c2s, _ := newPair(t)

	if err := client.Send([]byte("one")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	first := make([]byte, c2s.Len())
	copy(first, c2s.Bytes())
	c2s.Reset()

	if err := client.Send([]byte("two")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Deliver the second record first.
	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("out-of-order record accepted, err = %v", err)
	}

	// The fault is permanent: even the originally valid record fails now.
	c2s.Write(first)
	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("channel recovered after fault, err = %v", err)
	}
}

func TestReceive_TamperRejected(t *testing.T) {
	client, server, c2s, _ := newPair(t)

	if err := client.Send([]byte("price=100")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	raw := c2s.Bytes()
	raw[len(raw)-1] ^= 0x01

	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("tampered record accepted, err = %v", err)
	}
}

func TestReceive_TruncationRejected(t *testing.T) {
	client, server, c2s, _ := newPair(t)

	if err := client.Send([]byte("a longer message body")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c2s.Truncate(c2s.Len() - 3)

	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("truncated record accepted, err = %v", err)
	}
}

func TestReceive_CleanEOF(t *testing.T) {
	_, server, _, _ := newPair(t)

	if _, err := server.Receive(); err != io.EOF {
		t.Fatalf("expected io.EOF at record boundary, got %v", err)
	}
	// EOF is terminal too.
	if _, err := server.Receive(); err != io.EOF {
		t.Fatalf("expected io.EOF on the closed channel, got %v", err)
	}
}

func TestReceive_OversizedLengthRejected(t *testing.T) {
	client, server, c2s, _ := newPair(t)
	server.SetMaxMessageSize(8)

	if err := client.Send([]byte("way past the eight byte limit")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := server.Receive(); !errors.Is(err, common.ErrProtocolFault) {
		t.Fatalf("oversized record accepted, err = %v", err)
	}
	_ = c2s
}

func TestSend_OversizedMessageRefused(t *testing.T) {
	client, _, _, _ := newPair(t)
	client.SetMaxMessageSize(4)

	if err := client.Send([]byte("too big")); err == nil {
		t.Fatalf("expected error sending past the limit")
	}
}

func TestSend_WrongKeySize(t *testing.T) {
	if _, err := NewSecureChannel(&duplex{in: &bytes.Buffer{}, out: &bytes.Buffer{}},
		[]byte("short"), bytes.Repeat([]byte{1}, KeySize)); err == nil {
		t.Fatalf("expected error for short key")
	}
}
