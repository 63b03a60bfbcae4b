// Package session runs the per-connection command loop: a small state
// machine over the framed messenger that dispatches client commands against
// the shared catalog. Each session owns its cart, its query cursor, and its
// channel; the catalog store is the only state shared between sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/logging"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
	"github.com/dmitrijs2005/imagevault/internal/server/blob"
	"github.com/dmitrijs2005/imagevault/internal/server/catalog"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
	"github.com/dmitrijs2005/imagevault/internal/server/query"
)

// State is the authentication state of a session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

// Options are the per-deployment session policies.
type Options struct {
	// PersistCarts writes cart mutations through to the carts repository and
	// reloads the cart on login. Off by default: carts die with the session.
	PersistCarts bool

	// DefaultBatchSize is used when a NextBatch request passes no size.
	DefaultBatchSize int
}

// Session serves one authenticated-encrypted connection. Not safe for
// concurrent use; exactly one goroutine runs Run.
type Session struct {
	msgr     *protocol.Messenger
	store    *catalog.Store
	engine   *query.Engine
	blobs    blob.Store
	embedder embedding.Embedder
	logger   logging.Logger
	opts     Options

	state  State
	user   *models.User
	cursor *query.Cursor
	cart   *cart
}

// New constructs a session over an established messenger.
func New(msgr *protocol.Messenger, store *catalog.Store, engine *query.Engine, blobs blob.Store, embedder embedding.Embedder, logger logging.Logger, opts Options) *Session {
	return &Session{
		msgr:     msgr,
		store:    store,
		engine:   engine,
		blobs:    blobs,
		embedder: embedder,
		logger:   logger,
		opts:     opts,
		state:    StateUnauthenticated,
		cart:     newCart(),
	}
}

// State reports the current state. Exposed for tests and the server loop.
func (s *Session) State() State {
	return s.state
}

// Run processes commands until the client disconnects, logs out, or commits
// a protocol fault. A clean close returns nil; a fault returns the fault
// and guarantees no later message was processed.
func (s *Session) Run(ctx context.Context) error {
	defer func() { s.state = StateClosed }()

	for {
		tag, raw, err := s.msgr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := s.dispatch(ctx, tag, raw); err != nil {
			// Protocol fault: no response, the connection is torn down.
			return err
		}
		if s.state == StateClosed {
			return nil
		}
	}
}

var authRequired = map[protocol.Tag]bool{
	protocol.TagAddImage:      true,
	protocol.TagUpdateImage:   true,
	protocol.TagDeleteImage:   true,
	protocol.TagBrowseByTags:  true,
	protocol.TagSearchByImage: true,
	protocol.TagNextBatch:     true,
	protocol.TagCartAdd:       true,
	protocol.TagCartUpdate:    true,
	protocol.TagCartRemove:    true,
	protocol.TagCartView:      true,
}

func (s *Session) dispatch(ctx context.Context, tag protocol.Tag, raw []byte) error {
	if authRequired[tag] && s.state != StateAuthenticated {
		return fmt.Errorf("%w: %v before authentication", common.ErrProtocolFault, tag)
	}

	switch tag {
	case protocol.TagCreateUser:
		return s.handleCreateUser(ctx, raw)
	case protocol.TagLogin:
		return s.handleLogin(ctx, raw)
	case protocol.TagLogout:
		return s.handleLogout(ctx, raw)
	case protocol.TagAddImage:
		return s.handleAddImage(ctx, raw)
	case protocol.TagUpdateImage:
		return s.handleUpdateImage(ctx, raw)
	case protocol.TagDeleteImage:
		return s.handleDeleteImage(ctx, raw)
	case protocol.TagBrowseByTags:
		return s.handleBrowseByTags(ctx, raw)
	case protocol.TagSearchByImage:
		return s.handleSearchByImage(ctx, raw)
	case protocol.TagNextBatch:
		return s.handleNextBatch(ctx, raw)
	case protocol.TagCartAdd:
		return s.handleCartAdd(ctx, raw)
	case protocol.TagCartUpdate:
		return s.handleCartUpdate(ctx, raw)
	case protocol.TagCartRemove:
		return s.handleCartRemove(ctx, raw)
	case protocol.TagCartView:
		return s.handleCartView(ctx, raw)
	default:
		return fmt.Errorf("%w: unknown tag %v", common.ErrProtocolFault, tag)
	}
}

// sendError converts a command-level error into a structured response. The
// session stays open.
func (s *Session) sendError(ctx context.Context, err error) error {
	code, retryable := wireError(err)
	s.logger.Debug(ctx, "command failed", "code", code, "error", err)
	return s.msgr.Send(protocol.TagError, &protocol.ErrorResponse{
		V:         protocol.SchemaVersion,
		Code:      code,
		Message:   err.Error(),
		Retryable: retryable,
	})
}

func (s *Session) sendOk() error {
	return s.msgr.Send(protocol.TagOk, &protocol.OkResponse{V: protocol.SchemaVersion})
}

// wireError maps the error taxonomy onto wire codes. Anything unrecognized
// is reported as internal without leaking detail beyond the message.
func wireError(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, common.ErrBadCredential):
		return protocol.CodeBadCredential, false
	case errors.Is(err, common.ErrDuplicateUser):
		return protocol.CodeDuplicateUser, false
	case errors.Is(err, common.ErrDuplicateName):
		return protocol.CodeDuplicateName, false
	case errors.Is(err, common.ErrNotFound):
		return protocol.CodeNotFound, false
	case errors.Is(err, common.ErrNotOwner):
		return protocol.CodeNotOwner, false
	case errors.Is(err, common.ErrInsufficientQuantity):
		return protocol.CodeInsufficientQuantity, false
	case errors.Is(err, common.ErrUnauthorized):
		return protocol.CodeUnauthorized, false
	case errors.Is(err, common.ErrUnknownTag):
		return protocol.CodeUnknownTag, false
	case errors.Is(err, common.ErrInvalidArgument):
		return protocol.CodeInvalidArgument, false
	case errors.Is(err, common.ErrStoreUnavailable):
		return protocol.CodeStoreUnavailable, true
	case errors.Is(err, common.ErrCollaborator):
		return protocol.CodeCollaborator, true
	default:
		return protocol.CodeInternal, false
	}
}
