package adjustments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// TxRepository groups the item update and the history record into one
// transaction.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, itemID int64) (inventory.Item, error)
	UpdateItemStock(ctx context.Context, itemID, quantity int64) error
	GetAdjustment(ctx context.Context, id int64) (*AdjustmentRecord, error)
	InsertAdjustment(ctx context.Context, adj AdjustmentRecord) (int64, error)
	UpdateAdjustment(ctx context.Context, adj AdjustmentRecord) error
	DeleteAdjustment(ctx context.Context, id int64) error
}

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*AdjustmentRecord, error)
	ListAll(ctx context.Context) ([]AdjustmentRecord, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps derived-aggregate caches after a mutation.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// IdempotencyPort guards mutation submissions against duplicate delivery.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates stock corrections.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	invalidate  CacheInvalidator
	validate    *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, invalidate CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, invalidate: invalidate, validate: validator.New()}
}

// Adjust applies a signed delta to the item's stock and records the
// correction in one transaction. A delta driving stock negative aborts
// the whole mutation.
func (s *Service) Adjust(ctx context.Context, req CreateAdjustmentRequest, actorID int64, idemKey string) (*AdjustmentRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if req.Delta == 0 {
		return nil, ErrZeroDelta
	}

	insertedKey := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, "adjustments:"+idemKey, "adjustments"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	var adj AdjustmentRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		newStock := item.Quantity + req.Delta
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}
		adj = AdjustmentRecord{
			ItemID:    item.ID,
			Name:      item.Name,
			Delta:     req.Delta,
			Reason:    req.Reason,
			Category:  item.Category,
			Date:      date,
			CreatedBy: actorID,
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		id, err := tx.InsertAdjustment(ctx, adj)
		if err != nil {
			return err
		}
		adj.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, "adjustments:"+idemKey)
		}
		return nil, err
	}

	s.recordAudit(ctx, actorID, "adjustment.create", adj.ID, map[string]any{"item_id": adj.ItemID, "delta": adj.Delta})
	s.bump(ctx)
	return &adj, nil
}

// Update applies only the difference between the old and new delta.
func (s *Service) Update(ctx context.Context, id int64, req UpdateAdjustmentRequest, actorID int64, role string) (*AdjustmentRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if req.Delta != nil && *req.Delta == 0 {
		return nil, ErrZeroDelta
	}

	var updated AdjustmentRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetAdjustment(ctx, id)
		if err != nil {
			return err
		}
		if role != shared.RoleAdmin && old.CreatedBy != actorID {
			return ErrNotOwner
		}
		item, err := tx.GetItemForUpdate(ctx, old.ItemID)
		if err != nil {
			return err
		}

		updated = *old
		if req.Delta != nil {
			updated.Delta = *req.Delta
		}
		if req.Reason != nil {
			updated.Reason = *req.Reason
		}
		if req.Date != nil {
			updated.Date = req.Date.UTC()
		}

		newStock := item.Quantity - old.Delta + updated.Delta
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.UpdateAdjustment(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "adjustment.update", id, map[string]any{"delta": updated.Delta})
	s.bump(ctx)
	return &updated, nil
}

// Delete reverses the correction by subtracting its original delta.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64, role string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetAdjustment(ctx, id)
		if err != nil {
			return err
		}
		if role != shared.RoleAdmin && old.CreatedBy != actorID {
			return ErrNotOwner
		}
		item, err := tx.GetItemForUpdate(ctx, old.ItemID)
		if err != nil {
			return err
		}
		newStock := item.Quantity - old.Delta
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.DeleteAdjustment(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "adjustment.delete", id, nil)
	s.bump(ctx)
	return nil
}

// Get fetches one adjustment record.
func (s *Service) Get(ctx context.Context, id int64) (*AdjustmentRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListAll fetches the whole collection for derived views.
func (s *Service) ListAll(ctx context.Context) ([]AdjustmentRecord, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "adjustment",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	_ = s.invalidate.Bump(ctx)
}
