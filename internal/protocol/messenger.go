package protocol

import (
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/codec"
	"github.com/dmitrijs2005/imagevault/internal/common"
)

// Messenger frames tagged messages over a SecureChannel. The plaintext of
// every record is [1-byte tag][CBOR body]; the record length itself travels
// under the channel's integrity protection, so framing cannot be forged or
// shifted by tampering with lengths.
type Messenger struct {
	ch *SecureChannel
}

func NewMessenger(ch *SecureChannel) *Messenger {
	return &Messenger{ch: ch}
}

// Send encodes body as CBOR and transmits it under tag. A nil body sends an
// empty CBOR map so the peer can still decode into its versioned struct.
func (m *Messenger) Send(tag Tag, body any) error {
	if body == nil {
		body = struct{}{}
	}
	encoded, err := codec.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %v body: %w", tag, err)
	}

	plaintext := make([]byte, 0, 1+len(encoded))
	plaintext = append(plaintext, byte(tag))
	plaintext = append(plaintext, encoded...)

	return m.ch.Send(plaintext)
}

// Next reads the next message and returns its tag and raw CBOR body. Errors
// from the channel pass through unchanged (io.EOF for a clean close, a
// common.ErrProtocolFault wrap for everything else); an empty plaintext is
// itself a protocol fault.
func (m *Messenger) Next() (Tag, []byte, error) {
	plaintext, err := m.ch.Receive()
	if err != nil {
		return 0, nil, err
	}
	if len(plaintext) == 0 {
		return 0, nil, fmt.Errorf("%w: empty message", common.ErrProtocolFault)
	}
	return Tag(plaintext[0]), plaintext[1:], nil
}

// DecodeBody decodes a raw body returned by Next into v. A malformed body
// is a protocol fault: the sender cannot be trusted to be in step anymore.
func DecodeBody(raw []byte, v any) error {
	if err := codec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", common.ErrProtocolFault, err)
	}
	return nil
}
