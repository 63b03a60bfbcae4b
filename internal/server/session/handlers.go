package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/protocol"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

func (s *Session) handleCreateUser(ctx context.Context, raw []byte) error {
	var req protocol.CredentialsRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if s.state == StateAuthenticated {
		return s.sendError(ctx, fmt.Errorf("%w: already authenticated", common.ErrUnauthorized))
	}

	user, err := s.store.CreateUser(ctx, req.Username, req.Password)
	if err != nil {
		return s.sendError(ctx, err)
	}
	return s.bindUser(ctx, user)
}

func (s *Session) handleLogin(ctx context.Context, raw []byte) error {
	var req protocol.CredentialsRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if s.state == StateAuthenticated {
		return s.sendError(ctx, fmt.Errorf("%w: already authenticated", common.ErrUnauthorized))
	}

	user, err := s.store.VerifyUser(ctx, req.Username, req.Password)
	if err != nil {
		return s.sendError(ctx, err)
	}
	return s.bindUser(ctx, user)
}

// bindUser moves the session to AUTHENTICATED and, when cart persistence is
// on, restores the user's saved cart.
func (s *Session) bindUser(ctx context.Context, user *models.User) error {
	s.user = user
	s.state = StateAuthenticated
	s.logger.Info(ctx, "session authenticated", "user_id", user.ID, "username", user.Username)

	if s.opts.PersistCarts {
		saved, err := s.store.LoadCart(ctx, user.ID)
		if err != nil {
			// The account is fine, only the saved cart is unavailable.
			// Start empty rather than refusing the login.
			s.logger.Warn(ctx, "loading persisted cart failed", "user_id", user.ID, "error", err)
		}
		for _, it := range saved {
			s.cart.set(it.ImageID, it.Quantity)
		}
	}
	return s.sendOk()
}

func (s *Session) handleLogout(ctx context.Context, raw []byte) error {
	var req protocol.LogoutRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	if err := s.sendOk(); err != nil {
		return err
	}
	s.state = StateClosed
	return nil
}

func (s *Session) handleAddImage(ctx context.Context, raw []byte) error {
	var req protocol.AddImageRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if len(req.Data) == 0 {
		return s.sendError(ctx, fmt.Errorf("%w: empty image data", common.ErrInvalidArgument))
	}

	vector, err := s.embedder.Embed(ctx, req.Data)
	if err != nil {
		return s.sendError(ctx, err)
	}

	img, err := s.store.AddImage(ctx, s.user.ID, req.Name, req.PriceCents, req.Quantity, req.Tags, vector)
	if err != nil {
		return s.sendError(ctx, err)
	}

	if err := s.blobs.Put(ctx, img.ID, req.Data); err != nil {
		// Keep the catalog consistent with the blob store: undo the row.
		if delErr := s.store.DeleteImage(ctx, s.user.ID, img.ID); delErr != nil {
			s.logger.Error(ctx, "rollback after blob failure failed", "image_id", img.ID, "error", delErr)
		}
		return s.sendError(ctx, err)
	}

	return s.msgr.Send(protocol.TagImageAdded, &protocol.ImageAddedResponse{
		V:       protocol.SchemaVersion,
		ImageID: img.ID,
	})
}

func (s *Session) handleUpdateImage(ctx context.Context, raw []byte) error {
	var req protocol.UpdateImageRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	if err := s.store.UpdateImage(ctx, s.user.ID, req.ImageID, req.PriceCents, req.Quantity, req.Tags); err != nil {
		return s.sendError(ctx, err)
	}
	return s.sendOk()
}

func (s *Session) handleDeleteImage(ctx context.Context, raw []byte) error {
	var req protocol.DeleteImageRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	if err := s.store.DeleteImage(ctx, s.user.ID, req.ImageID); err != nil {
		return s.sendError(ctx, err)
	}
	if err := s.blobs.Delete(ctx, req.ImageID); err != nil {
		// The row is gone; an orphaned blob is a cleanup concern, not a
		// command failure.
		s.logger.Warn(ctx, "deleting blob failed", "image_id", req.ImageID, "error", err)
	}
	return s.sendOk()
}

func (s *Session) handleBrowseByTags(ctx context.Context, raw []byte) error {
	var req protocol.BrowseByTagsRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	cur, err := s.engine.Browse(ctx, req.Tags)
	if err != nil {
		return s.sendError(ctx, err)
	}
	s.cursor = cur
	return s.msgr.Send(protocol.TagQueryStarted, &protocol.QueryStartedResponse{
		V:     protocol.SchemaVersion,
		Total: cur.Total(),
	})
}

func (s *Session) handleSearchByImage(ctx context.Context, raw []byte) error {
	var req protocol.SearchByImageRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if len(req.Data) == 0 {
		return s.sendError(ctx, fmt.Errorf("%w: empty image data", common.ErrInvalidArgument))
	}

	cur, err := s.engine.Search(ctx, req.Data, req.Limit)
	if err != nil {
		return s.sendError(ctx, err)
	}
	s.cursor = cur
	return s.msgr.Send(protocol.TagQueryStarted, &protocol.QueryStartedResponse{
		V:     protocol.SchemaVersion,
		Total: cur.Total(),
	})
}

func (s *Session) handleNextBatch(ctx context.Context, raw []byte) error {
	var req protocol.NextBatchRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if s.cursor == nil {
		return fmt.Errorf("%w: next batch without an active query", common.ErrProtocolFault)
	}

	size := req.BatchSize
	if size <= 0 {
		size = s.opts.DefaultBatchSize
	}
	items, hasMore, err := s.cursor.Next(ctx, size)
	if err != nil {
		return s.sendError(ctx, err)
	}

	resp := &protocol.BatchResponse{V: protocol.SchemaVersion, HasMore: hasMore}
	for _, it := range items {
		tags := make([]int, 0, len(it.Tags))
		for _, tg := range it.Tags {
			tags = append(tags, int(tg))
		}
		resp.Items = append(resp.Items, protocol.BatchItem{
			ImageID:    it.ImageID,
			Name:       it.Name,
			Data:       it.Data,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			Tags:       tags,
			Score:      float32(it.Score),
		})
	}
	return s.msgr.Send(protocol.TagBatch, resp)
}

func (s *Session) handleCartAdd(ctx context.Context, raw []byte) error {
	var req protocol.CartAddRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if req.Quantity < 1 {
		return s.sendError(ctx, fmt.Errorf("%w: quantity must be at least 1", common.ErrInvalidArgument))
	}

	img, err := s.store.GetImage(ctx, req.ImageID)
	if err != nil {
		return s.sendError(ctx, err)
	}

	want := s.cart.get(req.ImageID) + req.Quantity
	if want > img.Quantity {
		return s.sendError(ctx, fmt.Errorf("%w: requested %d of %d available", common.ErrInsufficientQuantity, want, img.Quantity))
	}

	if err := s.setCartLine(ctx, req.ImageID, want); err != nil {
		return s.sendError(ctx, err)
	}
	return s.sendOk()
}

func (s *Session) handleCartUpdate(ctx context.Context, raw []byte) error {
	var req protocol.CartUpdateRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}
	if req.Quantity < 0 {
		return s.sendError(ctx, fmt.Errorf("%w: negative quantity", common.ErrInvalidArgument))
	}
	if s.cart.get(req.ImageID) == 0 {
		return s.sendError(ctx, fmt.Errorf("%w: image %s is not in the cart", common.ErrNotFound, req.ImageID))
	}

	if req.Quantity > 0 {
		img, err := s.store.GetImage(ctx, req.ImageID)
		if err != nil {
			return s.sendError(ctx, err)
		}
		if req.Quantity > img.Quantity {
			return s.sendError(ctx, fmt.Errorf("%w: requested %d of %d available", common.ErrInsufficientQuantity, req.Quantity, img.Quantity))
		}
	}

	if err := s.setCartLine(ctx, req.ImageID, req.Quantity); err != nil {
		return s.sendError(ctx, err)
	}
	return s.sendOk()
}

func (s *Session) handleCartRemove(ctx context.Context, raw []byte) error {
	var req protocol.CartRemoveRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	if !s.cart.remove(req.ImageID) {
		return s.sendError(ctx, fmt.Errorf("%w: image %s is not in the cart", common.ErrNotFound, req.ImageID))
	}
	if s.opts.PersistCarts {
		if err := s.store.RemoveCartItem(ctx, s.user.ID, req.ImageID); err != nil {
			return s.sendError(ctx, err)
		}
	}
	return s.sendOk()
}

func (s *Session) handleCartView(ctx context.Context, raw []byte) error {
	var req protocol.CartViewRequest
	if err := protocol.DecodeBody(raw, &req); err != nil {
		return err
	}

	resp := &protocol.CartResponse{V: protocol.SchemaVersion}
	for _, it := range s.cart.items() {
		img, err := s.store.GetImage(ctx, it.ImageID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// The image was removed from the catalog; drop the line.
				s.cart.remove(it.ImageID)
				if s.opts.PersistCarts {
					if remErr := s.store.RemoveCartItem(ctx, s.user.ID, it.ImageID); remErr != nil {
						s.logger.Warn(ctx, "dropping stale cart line failed", "image_id", it.ImageID, "error", remErr)
					}
				}
				continue
			}
			return s.sendError(ctx, err)
		}
		resp.Items = append(resp.Items, protocol.CartEntry{
			ImageID:    img.ID,
			Name:       img.Name,
			PriceCents: img.PriceCents,
			Quantity:   it.Quantity,
		})
		resp.TotalCents += img.PriceCents * int64(it.Quantity)
	}
	return s.msgr.Send(protocol.TagCart, resp)
}

// setCartLine applies a validated cart mutation to the session cart and,
// when persistence is on, writes it through.
func (s *Session) setCartLine(ctx context.Context, imageID string, quantity int) error {
	s.cart.set(imageID, quantity)
	if !s.opts.PersistCarts {
		return nil
	}
	if quantity == 0 {
		return s.store.RemoveCartItem(ctx, s.user.ID, imageID)
	}
	return s.store.SaveCartItem(ctx, s.user.ID, models.CartItem{ImageID: imageID, Quantity: quantity})
}
