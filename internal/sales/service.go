package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stockroom-pos/stockroom/internal/inventory"
	"github.com/stockroom-pos/stockroom/internal/shared"
)

// TxRepository exposes the operations that must move together: the
// history record and the inventory quantity update share one
// transaction, so a failure in either leaves both unapplied.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, itemID int64) (inventory.Item, error)
	UpdateItemStock(ctx context.Context, itemID, quantity int64) error
	GetSale(ctx context.Context, id int64) (*SaleRecord, error)
	InsertSale(ctx context.Context, sale SaleRecord) (int64, error)
	UpdateSale(ctx context.Context, sale SaleRecord) error
	DeleteSale(ctx context.Context, id int64) error
}

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*SaleRecord, error)
	ListAll(ctx context.Context) ([]SaleRecord, error)
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

// Service coordinates the sell flow.
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

// Sell decrements item stock and records the sale in one transaction.
// A request exceeding current stock is rejected before anything is
// written.
func (s *Service) Sell(ctx context.Context, req CreateSaleRequest, actorID int64, idemKey string) (*SaleRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	insertedKey := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, "sales:"+idemKey, "sales"); err != nil {
			return nil, err
		}
		insertedKey = true
	}

	soldAt := time.Now().UTC()
	if req.SoldAt != nil {
		soldAt = req.SoldAt.UTC()
	}

	var sale SaleRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if req.Quantity > item.Quantity {
			return inventory.ErrInsufficientStock
		}
		sale = SaleRecord{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  req.Quantity,
			Price:     req.Price,
			Total:     inventory.Round2(req.Price * float64(req.Quantity)),
			Profit:    inventory.Profit(req.Price, item.AvgCost, req.Quantity),
			Customer:  req.Customer,
			Category:  item.Category,
			SoldAt:    soldAt,
			CreatedBy: actorID,
		}
		if err := tx.UpdateItemStock(ctx, item.ID, item.Quantity-req.Quantity); err != nil {
			return err
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, "sales:"+idemKey)
		}
		return nil, err
	}

	s.recordAudit(ctx, actorID, "sale.create", sale.ID, map[string]any{"item_id": sale.ItemID, "quantity": sale.Quantity})
	s.bump(ctx)
	return &sale, nil
}

// Update recomputes the inventory delta as (old − new) and applies
// only that difference. The whole edit aborts when the restocked
// amount would drive the item negative.
func (s *Service) Update(ctx context.Context, id int64, req UpdateSaleRequest, actorID int64, role string) (*SaleRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	var updated SaleRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetSale(ctx, id)
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
		if req.Customer != nil {
			updated.Customer = req.Customer
		}
		if req.SoldAt != nil {
			updated.SoldAt = req.SoldAt.UTC()
		}

		newStock := item.Quantity + old.Quantity - updated.Quantity
		if newStock < 0 {
			return inventory.ErrNegativeStock
		}

		// Unit cost at the time of sale, recovered from the original
		// record so an edit does not silently reprice history.
		unitCost := old.Price - old.Profit/float64(old.Quantity)
		updated.Total = inventory.Round2(updated.Price * float64(updated.Quantity))
		updated.Profit = inventory.Round2((updated.Price - unitCost) * float64(updated.Quantity))

		if err := tx.UpdateItemStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.UpdateSale(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "sale.update", id, map[string]any{"quantity": updated.Quantity})
	s.bump(ctx)
	return &updated, nil
}

// Delete reverses the sale's effect, restoring the sold quantity.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64, role string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetSale(ctx, id)
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
		if err := tx.UpdateItemStock(ctx, item.ID, item.Quantity+old.Quantity); err != nil {
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "sale.delete", id, nil)
	s.bump(ctx)
	return nil
}

// Get fetches one sale record.
func (s *Service) Get(ctx context.Context, id int64) (*SaleRecord, error) {
	return s.repo.Get(ctx, id)
}

// ListAll fetches the whole collection for derived views.
func (s *Service) ListAll(ctx context.Context) ([]SaleRecord, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
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
