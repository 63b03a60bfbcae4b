package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/dbx"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
	"github.com/dmitrijs2005/imagevault/internal/server/blob"
	"github.com/dmitrijs2005/imagevault/internal/server/catalog"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
	"github.com/dmitrijs2005/imagevault/internal/server/query"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/repomanager"
)

func testPSK() []byte {
	return bytes.Repeat([]byte{0x42}, protocol.PSKSize)
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type env struct {
	store *catalog.Store
	blobs blob.Store
}

func newEnv() *env {
	return &env{
		store: catalog.NewStore(repomanager.NewInMemoryRepositoryManager(), nil),
		blobs: blob.NewInMemoryStore(),
	}
}

// client drives one session over a net.Pipe, one exchange at a time.
type client struct {
	t    *testing.T
	msgr *protocol.Messenger
	conn net.Conn
	done <-chan error
}

// startSession runs a Session against e in a background goroutine and
// returns a connected client.
func startSession(t *testing.T, e *env, opts Options) *client {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	embedder := &embedding.FakeEmbedder{Dimensions: 8}
	engine := query.NewEngine(e.store, e.blobs, embedder)

	done := make(chan error, 1)
	go func() {
		defer serverConn.Close()
		ch, err := protocol.ServerHandshake(serverConn, testPSK())
		if err != nil {
			done <- err
			return
		}
		sess := New(protocol.NewMessenger(ch), e.store, engine, e.blobs, embedder, discardLogger(), opts)
		done <- sess.Run(context.Background())
	}()

	ch, err := protocol.ClientHandshake(clientConn, testPSK())
	require.NoError(t, err)

	return &client{t: t, msgr: protocol.NewMessenger(ch), conn: clientConn, done: done}
}

// exchange sends one request and decodes the response body into out (when
// out is non-nil), returning the response tag.
func (c *client) exchange(tag protocol.Tag, body, out any) protocol.Tag {
	c.t.Helper()
	require.NoError(c.t, c.msgr.Send(tag, body))
	respTag, raw, err := c.msgr.Next()
	require.NoError(c.t, err)
	if out != nil {
		require.NoError(c.t, protocol.DecodeBody(raw, out))
	}
	return respTag
}

func (c *client) mustOk(tag protocol.Tag, body any) {
	c.t.Helper()
	var resp protocol.ErrorResponse
	got := c.exchange(tag, body, &resp)
	if got == protocol.TagError {
		c.t.Fatalf("%v: unexpected error response %q: %s", tag, resp.Code, resp.Message)
	}
	require.Equal(c.t, protocol.TagOk, got)
}

func (c *client) mustError(tag protocol.Tag, body any) protocol.ErrorResponse {
	c.t.Helper()
	var resp protocol.ErrorResponse
	require.Equal(c.t, protocol.TagError, c.exchange(tag, body, &resp))
	return resp
}

func (c *client) register(username, password string) {
	c.t.Helper()
	c.mustOk(protocol.TagCreateUser, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: username, Password: password,
	})
}

func (c *client) login(username, password string) {
	c.t.Helper()
	c.mustOk(protocol.TagLogin, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: username, Password: password,
	})
}

func (c *client) addImage(name string, data []byte, priceCents int64, quantity int, tags []int) string {
	c.t.Helper()
	var resp protocol.ImageAddedResponse
	got := c.exchange(protocol.TagAddImage, &protocol.AddImageRequest{
		V: protocol.SchemaVersion, Name: name, Data: data,
		PriceCents: priceCents, Quantity: quantity, Tags: tags,
	}, &resp)
	require.Equal(c.t, protocol.TagImageAdded, got)
	require.NotEmpty(c.t, resp.ImageID)
	return resp.ImageID
}

// waitClosed asserts the server side of the session has finished.
func (c *client) waitClosed() error {
	c.t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(2 * time.Second):
		c.t.Fatal("session did not close")
		return nil
	}
}

func TestScenarioRegisterAddBrowsePull(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})

	c.register("alice", "pw1")

	footwear := int(models.TagFootwear)
	imageID := c.addImage("red-logo.png", []byte("red logo bytes"), 1999, 3, []int{footwear})

	var started protocol.QueryStartedResponse
	got := c.exchange(protocol.TagBrowseByTags, &protocol.BrowseByTagsRequest{
		V: protocol.SchemaVersion, Tags: []int{footwear},
	}, &started)
	require.Equal(t, protocol.TagQueryStarted, got)
	assert.Equal(t, 1, started.Total)

	var batch protocol.BatchResponse
	got = c.exchange(protocol.TagNextBatch, &protocol.NextBatchRequest{
		V: protocol.SchemaVersion, BatchSize: 1,
	}, &batch)
	require.Equal(t, protocol.TagBatch, got)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, imageID, batch.Items[0].ImageID)
	assert.Equal(t, "red-logo.png", batch.Items[0].Name)
	assert.Equal(t, []byte("red logo bytes"), batch.Items[0].Data)
	assert.False(t, batch.HasMore)
}

func TestLoginAcrossSessions(t *testing.T) {
	e := newEnv()

	c1 := startSession(t, e, Options{})
	c1.register("alice", "pw1")
	c1.mustOk(protocol.TagLogout, &protocol.LogoutRequest{V: protocol.SchemaVersion})
	require.NoError(t, c1.waitClosed())

	c2 := startSession(t, e, Options{})
	resp := c2.mustError(protocol.TagLogin, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: "alice", Password: "wrong",
	})
	assert.Equal(t, protocol.CodeBadCredential, resp.Code)

	// The failed login keeps the session open.
	c2.login("alice", "pw1")
}

func TestDuplicateUsername(t *testing.T) {
	e := newEnv()

	c1 := startSession(t, e, Options{})
	c1.register("alice", "pw1")

	c2 := startSession(t, e, Options{})
	resp := c2.mustError(protocol.TagCreateUser, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: "alice", Password: "other",
	})
	assert.Equal(t, protocol.CodeDuplicateUser, resp.Code)
}

func TestCommandBeforeAuthIsFatal(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})

	require.NoError(t, c.msgr.Send(protocol.TagBrowseByTags, &protocol.BrowseByTagsRequest{V: protocol.SchemaVersion}))

	// No response; the server closes the connection instead.
	_, _, err := c.msgr.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, c.waitClosed(), common.ErrProtocolFault)
}

func TestNextBatchWithoutQueryIsFatal(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	require.NoError(t, c.msgr.Send(protocol.TagNextBatch, &protocol.NextBatchRequest{V: protocol.SchemaVersion, BatchSize: 1}))

	_, _, err := c.msgr.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, c.waitClosed(), common.ErrProtocolFault)
}

func TestUnknownTagIsFatal(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})

	require.NoError(t, c.msgr.Send(protocol.Tag(0xee), nil))

	_, _, err := c.msgr.Next()
	assert.Error(t, err)
	assert.ErrorIs(t, c.waitClosed(), common.ErrProtocolFault)
}

func TestOwnershipEnforced(t *testing.T) {
	e := newEnv()

	owner := startSession(t, e, Options{})
	owner.register("alice", "pw1")
	imageID := owner.addImage("mine.png", []byte("mine"), 500, 2, nil)

	intruder := startSession(t, e, Options{})
	intruder.register("bob", "pw2")

	resp := intruder.mustError(protocol.TagUpdateImage, &protocol.UpdateImageRequest{
		V: protocol.SchemaVersion, ImageID: imageID, PriceCents: 1, Quantity: 1,
	})
	assert.Equal(t, protocol.CodeNotOwner, resp.Code)

	resp = intruder.mustError(protocol.TagDeleteImage, &protocol.DeleteImageRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
	})
	assert.Equal(t, protocol.CodeNotOwner, resp.Code)

	// The image is unchanged.
	img, err := e.store.GetImage(context.Background(), imageID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), img.PriceCents)
}

func TestCursorSnapshotOverWire(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		c.addImage(name, []byte(name), 100, 1, []int{int(models.TagFootwear)})
	}

	var started protocol.QueryStartedResponse
	got := c.exchange(protocol.TagBrowseByTags, &protocol.BrowseByTagsRequest{
		V: protocol.SchemaVersion, Tags: []int{int(models.TagFootwear)},
	}, &started)
	require.Equal(t, protocol.TagQueryStarted, got)
	require.Equal(t, 3, started.Total)

	// A matching image added mid-pagination must not appear in this cursor.
	c.addImage("late.png", []byte("late"), 100, 1, []int{int(models.TagFootwear)})

	var seen int
	for {
		var batch protocol.BatchResponse
		got = c.exchange(protocol.TagNextBatch, &protocol.NextBatchRequest{
			V: protocol.SchemaVersion, BatchSize: 2,
		}, &batch)
		require.Equal(t, protocol.TagBatch, got)
		seen += len(batch.Items)
		for _, it := range batch.Items {
			assert.NotEqual(t, "late.png", it.Name)
		}
		if !batch.HasMore {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestSearchByImageRanksExactMatchFirst(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	// The fake embedder is deterministic on the input bytes, so searching
	// with the exact stored bytes must rank that image first.
	target := c.addImage("target.png", []byte("target bytes"), 100, 1, nil)
	c.addImage("other.png", []byte("other bytes"), 100, 1, nil)

	var started protocol.QueryStartedResponse
	got := c.exchange(protocol.TagSearchByImage, &protocol.SearchByImageRequest{
		V: protocol.SchemaVersion, Data: []byte("target bytes"), Limit: 0,
	}, &started)
	require.Equal(t, protocol.TagQueryStarted, got)
	require.Equal(t, 2, started.Total)

	var batch protocol.BatchResponse
	got = c.exchange(protocol.TagNextBatch, &protocol.NextBatchRequest{
		V: protocol.SchemaVersion, BatchSize: 10,
	}, &batch)
	require.Equal(t, protocol.TagBatch, got)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, target, batch.Items[0].ImageID)
	assert.Greater(t, batch.Items[0].Score, batch.Items[1].Score)
}

func TestCartFlow(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	imageID := c.addImage("socks.png", []byte("socks"), 250, 4, nil)

	c.mustOk(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 2,
	})

	// Exceeding current stock fails and leaves the cart unchanged.
	resp := c.mustError(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 3,
	})
	assert.Equal(t, protocol.CodeInsufficientQuantity, resp.Code)

	var cart protocol.CartResponse
	got := c.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, &cart)
	require.Equal(t, protocol.TagCart, got)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(500), cart.TotalCents)

	c.mustOk(protocol.TagCartUpdate, &protocol.CartUpdateRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 4,
	})

	got = c.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, &cart)
	require.Equal(t, protocol.TagCart, got)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1000), cart.TotalCents)

	c.mustOk(protocol.TagCartRemove, &protocol.CartRemoveRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
	})

	resp = c.mustError(protocol.TagCartRemove, &protocol.CartRemoveRequest{
		V: protocol.SchemaVersion, ImageID: imageID,
	})
	assert.Equal(t, protocol.CodeNotFound, resp.Code)
}

func TestCartValidationErrors(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	resp := c.mustError(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: "nonexistent", Quantity: 1,
	})
	assert.Equal(t, protocol.CodeNotFound, resp.Code)

	imageID := c.addImage("socks.png", []byte("socks"), 250, 4, nil)
	resp = c.mustError(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 0,
	})
	assert.Equal(t, protocol.CodeInvalidArgument, resp.Code)

	// Updating a line that was never added fails the same way removing one
	// does, whether the new quantity would clear it or set it.
	resp = c.mustError(protocol.TagCartUpdate, &protocol.CartUpdateRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 0,
	})
	assert.Equal(t, protocol.CodeNotFound, resp.Code)
	resp = c.mustError(protocol.TagCartUpdate, &protocol.CartUpdateRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 2,
	})
	assert.Equal(t, protocol.CodeNotFound, resp.Code)
}

func TestCartViewDropsDeletedImages(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	keep := c.addImage("keep.png", []byte("keep"), 100, 1, nil)
	gone := c.addImage("gone.png", []byte("gone"), 100, 1, nil)

	c.mustOk(protocol.TagCartAdd, &protocol.CartAddRequest{V: protocol.SchemaVersion, ImageID: keep, Quantity: 1})
	c.mustOk(protocol.TagCartAdd, &protocol.CartAddRequest{V: protocol.SchemaVersion, ImageID: gone, Quantity: 1})

	c.mustOk(protocol.TagDeleteImage, &protocol.DeleteImageRequest{V: protocol.SchemaVersion, ImageID: gone})

	var cart protocol.CartResponse
	got := c.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, &cart)
	require.Equal(t, protocol.TagCart, got)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, keep, cart.Items[0].ImageID)
}

func TestCartPersistsAcrossSessionsWhenEnabled(t *testing.T) {
	e := newEnv()
	opts := Options{PersistCarts: true}

	c1 := startSession(t, e, opts)
	c1.register("alice", "pw1")
	imageID := c1.addImage("socks.png", []byte("socks"), 250, 4, nil)
	c1.mustOk(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 2,
	})
	c1.mustOk(protocol.TagLogout, &protocol.LogoutRequest{V: protocol.SchemaVersion})
	require.NoError(t, c1.waitClosed())

	c2 := startSession(t, e, opts)
	c2.login("alice", "pw1")

	var cart protocol.CartResponse
	got := c2.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, &cart)
	require.Equal(t, protocol.TagCart, got)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, imageID, cart.Items[0].ImageID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartDiesWithSessionByDefault(t *testing.T) {
	e := newEnv()

	c1 := startSession(t, e, Options{})
	c1.register("alice", "pw1")
	imageID := c1.addImage("socks.png", []byte("socks"), 250, 4, nil)
	c1.mustOk(protocol.TagCartAdd, &protocol.CartAddRequest{
		V: protocol.SchemaVersion, ImageID: imageID, Quantity: 2,
	})
	c1.mustOk(protocol.TagLogout, &protocol.LogoutRequest{V: protocol.SchemaVersion})
	require.NoError(t, c1.waitClosed())

	c2 := startSession(t, e, Options{})
	c2.login("alice", "pw1")

	var cart protocol.CartResponse
	got := c2.exchange(protocol.TagCartView, &protocol.CartViewRequest{V: protocol.SchemaVersion}, &cart)
	require.Equal(t, protocol.TagCart, got)
	assert.Empty(t, cart.Items)
}

func TestStoreOutageReportsRetryable(t *testing.T) {
	// A repository that cannot reach its backend must surface as a
	// retryable command error, not an opaque internal one.
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	code, retryable := wireError(dbx.WrapErr(refused))
	assert.Equal(t, protocol.CodeStoreUnavailable, code)
	assert.True(t, retryable)

	code, retryable = wireError(dbx.WrapErr(errors.New("column does not exist")))
	assert.Equal(t, protocol.CodeInternal, code)
	assert.False(t, retryable)
}

func TestConcurrentSessionsShareCatalog(t *testing.T) {
	e := newEnv()

	const perSession = 5
	sessions := []*client{
		startSession(t, e, Options{}),
		startSession(t, e, Options{}),
	}
	sessions[0].register("alice", "pw1")
	sessions[1].register("bob", "pw2")

	done := make(chan struct{}, len(sessions))
	for i, c := range sessions {
		go func(i int, c *client) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perSession; j++ {
				name := fmt.Sprintf("img-%d-%d.png", i, j)
				c.addImage(name, []byte(name), 100, 1, nil)
			}
		}(i, c)
	}
	for range sessions {
		<-done
	}

	imgs, err := e.store.ListImagesByTags(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, imgs, len(sessions)*perSession)
}

func TestRelogInSameSessionRejected(t *testing.T) {
	e := newEnv()
	c := startSession(t, e, Options{})
	c.register("alice", "pw1")

	resp := c.mustError(protocol.TagLogin, &protocol.CredentialsRequest{
		V: protocol.SchemaVersion, Username: "alice", Password: "pw1",
	})
	assert.Equal(t, protocol.CodeUnauthorized, resp.Code)
}
