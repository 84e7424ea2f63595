package purchases

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
	UpdateItemCost(ctx context.Context, itemID, quantity int64, price, avgCost float64) error
	GetPurchase(ctx context.Context, id int64) (*PurchaseRecord, error)
	InsertPurchase(ctx context.Context, purchase PurchaseRecord) (int64, error)
	UpdatePurchase(ctx context.Context, purchase PurchaseRecord) error
	DeletePurchase(ctx context.Context, id int64) error
}

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*PurchaseRecord, error)
	ListAll(ctx context.Context) ([]PurchaseRecord, error)
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

// Service coordinates the restock flow.
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

// Purchase increments item stock, blends the unit price into the
// weighted-average cost and records the purchase, all in one
// transaction.
func (s *Service) Purchase(ctx context.Context, req CreatePurchaseRequest, actorID int64, idemKey string) (*PurchaseRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	insertedKey := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, "purchases:"+idemKey, "purchases"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	purchasedAt := time.Now().UTC()
	if req.PurchasedAt != nil {
		purchasedAt = req.PurchasedAt.UTC()
	}

	var purchase PurchaseRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		newAvg := inventory.NextAverageCost(item.AvgCost, item.Quantity, req.Price, req.Quantity)
		purchase = PurchaseRecord{
			ItemID:      item.ID,
			Name:        item.Name,
			Quantity:    req.Quantity,
			Price:       req.Price,
			Total:       inventory.Round2(req.Price * float64(req.Quantity)),
			Supplier:    req.Supplier,
			Category:    item.Category,
			PurchasedAt: purchasedAt,
			CreatedBy:   actorID,
		}
		if err := tx.UpdateItemCost(ctx, item.ID, item.Quantity+req.Quantity, req.Price, newAvg); err != nil {
			return err
		}
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, "purchases:"+idemKey)
		}
		return nil, err
	}

	s.recordAudit(ctx, actorID, "purchase.create", purchase.ID, map[string]any{"item_id": purchase.ItemID, "quantity": purchase.Quantity})
	s.bump(ctx)
	return &purchase, nil
}

// Update shifts stock by the quantity difference between the old and
// new record. The average cost is left as the create flow set it; only
// a fresh purchase re-blends it.
func (s *Service) Update(ctx context.Context, id int64, req UpdatePurchaseRequest, actorID int64, role string) (*PurchaseRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	var updated PurchaseRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetPurchase(ctx, id)
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
		if req.Quantity != nil {
			updated.Quantity = *req.Quantity
		}
		if req.Price != nil {
			updated.Price = *req.Price
		}
		if req.Supplier != nil {
			updated.Supplier = req.Supplier
		}
		if req.PurchasedAt != nil {
			updated.PurchasedAt = req.PurchasedAt.UTC()
		}
		updated.Total = inventory.Round2(updated.Price * float64(updated.Quantity))

		newStock := item.Quantity - old.Quantity + updated.Quantity
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.UpdatePurchase(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "purchase.update", id, map[string]any{"quantity": updated.Quantity})
	s.bump(ctx)
	return &updated, nil
}

// Delete reverses the purchase by subtracting its quantity. The whole
// mutation aborts when stock would go negative.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64, role string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetPurchase(ctx, id)
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
		newStock := item.Quantity - old.Quantity
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}
		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.DeletePurchase(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "purchase.delete", id, nil)
	s.bump(ctx)
	return nil
}

// Get fetches one purchase record.
func (s *Service) Get(ctx context.Context, id int64) (*PurchaseRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListAll fetches the whole collection for derived views.
func (s *Service) ListAll(ctx context.Context) ([]PurchaseRecord, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase",
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
