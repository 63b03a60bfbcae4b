// Package driver is the client side of the catalog protocol: it dials the
// server, runs the handshake, and exposes one typed method per command.
// Exchanges are strictly half-duplex, so a Client must not be shared between
// goroutines.
package driver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/protocol"
)

// ServerError is a structured error response from the server. The session
// stays usable after receiving one.
type ServerError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Image is one catalog item as seen by the client.
type Image struct {
	ID         string
	Name       string
	Data       []byte
	PriceCents int64
	Quantity   int
	Tags       []int
	Score      float32
}

// CartLine is one line of the server-side cart view.
type CartLine struct {
	ImageID    string
	Name       string
	PriceCents int64
	Quantity   int
}

// Cart is the full cart view with its computed total.
type Cart struct {
	Lines      []CartLine
	TotalCents int64
}

// Client is an established, encrypted connection to the server.
type Client struct {
	conn net.Conn
	msgr *protocol.Messenger
}

// Dial connects, performs the handshake with the shared key, and returns a
// ready client. The timeout covers connection establishment and handshake.
func Dial(ctx context.Context, addr string, psk []byte, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}
	ch, err := protocol.ClientHandshake(conn, psk)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})

	return &Client{conn: conn, msgr: protocol.NewMessenger(ch)}, nil
}

// Close tears down the connection. Safe to call after a protocol fault.
func (c *Client) Close() error {
	return c.conn.Close()
}

// exchange performs one request/response roundtrip. A TagError response is
// returned as *ServerError; any other tag must match want.
func (c *Client) exchange(reqTag protocol.Tag, body any, want protocol.Tag, out any) error {
	if err := c.msgr.Send(reqTag, body); err != nil {
		return err
	}

	tag, raw, err := c.msgr.Next()
	if err != nil {
		return err
	}
	if tag == protocol.TagError {
		var resp protocol.ErrorResponse
		if err := protocol.DecodeBody(raw, &resp); err != nil {
			return err
		}
		return &ServerError{Code: resp.Code, Message: resp.Message, Retryable: resp.Retryable}
	}
	if tag != want {
		return fmt.Errorf("unexpected response %v to %v", tag, reqTag)
	}
	if out != nil {
		return protocol.DecodeBody(raw, out)
	}
	return nil
}

// Register creates an account and leaves the session authenticated as it.
func (c *Client) Register(username, password string) error {
	return c.exchange(protocol.TagCreateUser, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: username, Password: password,
	}, protocol.TagOk, nil)
}

func (c *Client) Login(username, password string) error {
	return c.exchange(protocol.TagLogin, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: username, Password: password,
	}, protocol.TagOk, nil)
}

// Logout ends the session cleanly. The connection is done afterwards.
func (c *Client) Logout() error {
	return c.exchange(protocol.TagLogout, &protocol.LogoutRequest{V: protocol.SchemaVersion}, protocol.TagOk, nil)
}

// AddImage uploads an image and returns its assigned id.
func (c *Client) AddImage(name string, data []byte, priceCents int64, quantity int, tags []int) (string, error) {
	var resp protocol.ImageAddedResponse
	err := c.exchange(protocol.TagAddImage, &protocol.AddImageRequest{
		V: protocol.SchemaVersion, Name: name, Data: data,
		PriceCents: priceCents, Quantity: quantity, Tags: tags,
	}, protocol.TagImageAdded, &resp)
	if err != nil {
		return "", err
	}
	return resp.ImageID, nil
}

func (c *Client) UpdateImage(imageID string, priceCents int64, quantity int, tags []int) error {
	return c.exchange(protocol.TagUpdateImage, &protocol.UpdateImageRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
		PriceCents: priceCents, Quantity: quantity, Tags: tags,
	}, protocol.TagOk, nil)
}

func (c *Client) DeleteImage(imageID string) error {
	return c.exchange(protocol.TagDeleteImage, &protocol.DeleteImageRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
	}, protocol.TagOk, nil)
}

// Browse starts a tag query and returns the result size. Results are pulled
// with NextBatch.
func (c *Client) Browse(tags []int) (int, error) {
	var resp protocol.QueryStartedResponse
	err := c.exchange(protocol.TagBrowseByTags, &protocol.BrowseByTagsRequest{
		V: protocol.SchemaVersion, Tags: tags,
	}, protocol.TagQueryStarted, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// Search starts a similarity query from the given image bytes.
func (c *Client) Search(data []byte, limit int) (int, error) {
	var resp protocol.QueryStartedResponse
	err := c.exchange(protocol.TagSearchByImage, &protocol.SearchByImageRequest{
		V: protocol.SchemaVersion, Data: data, Limit: limit,
	}, protocol.TagQueryStarted, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// NextBatch pulls the next slice of the active query.
func (c *Client) NextBatch(batchSize int) ([]Image, bool, error) {
	var resp protocol.BatchResponse
	err := c.exchange(protocol.TagNextBatch, &protocol.NextBatchRequest{
		V: protocol.SchemaVersion, BatchSize: batchSize,
	}, protocol.TagBatch, &resp)
	if err != nil {
		return nil, false, err
	}

	images := make([]Image, 0, len(resp.Items))
	for _, it := range resp.Items {
		images = append(images, Image{
			ID:         it.ImageID,
			Name:       it.Name,
			Data:       it.Data,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			Tags:       it.Tags,
			Score:      it.Score,
		})
	}
	return images, resp.HasMore, nil
}

// Pull drains the active query completely.
func (c *Client) Pull(batchSize int) ([]Image, error) {
	var all []Image
	for {
		images, hasMore, err := c.NextBatch(batchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, images...)
		if !hasMore {
			return all, nil
		}
	}
}

func (c *Client) CartAdd(imageID string, quantity int) error {
	return c.exchange(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: quantity,
	}, protocol.TagOk, nil)
}

func (c *Client) CartUpdate(imageID string, quantity int) error {
	return c.exchange(protocol.TagCartUpdate, &protocol.CartUpdateRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: quantity,
	}, protocol.TagOk, nil)
}

func (c *Client) CartRemove(imageID string) error {
	return c.exchange(protocol.TagCartRemove, &protocol.CartRemoveRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
	}, protocol.TagOk, nil)
}

func (c *Client) CartView() (*Cart, error) {
	var resp protocol.CartResponse
	err := c.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, protocol.TagCart, &resp)
	if err != nil {
		return nil, err
	}

	cart := &Cart{TotalCents: resp.TotalCents}
	for _, it := range resp.Items {
		cart.Lines = append(cart.Lines, CartLine{
			ImageID:    it.ImageID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
		})
	}
	return cart, nil
}
