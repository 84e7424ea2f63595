package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/stockroom-pos/stockroom/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, item Item) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Item, error)
	ListAll(ctx context.Context) ([]Item, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory item operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// Create inserts a new item with its initial stock.
func (s *Service) Create(ctx context.Context, req CreateItemRequest, actorID int64) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, err)
	}
	item := Item{
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
		AvgCost:  req.AvgCost,
		Category: req.Category,
	}
	id, err := s.repo.Insert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	item.ID = id
	s.recordAudit(ctx, actorID, "item.create", id, map[string]any{"name": item.Name, "quantity": item.Quantity})
	return &item, nil
}

// Update edits descriptive item fields. Staff edits are restricted to
// the allow-listed fields; stock never changes here.
func (s *Service) Update(ctx context.Context, id int64, req UpdateItemRequest, role string, actorID int64) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, err)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if role != shared.RoleAdmin {
		for field := range updates {
			if !StaffEditableFields[field] {
				return nil, fmt.Errorf("%w: %s", ErrFieldNotEditable, field)
			}
		}
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "item.update", id, map[string]any{"fields": len(updates)})
	return item, nil
}

// Delete removes the item document permanently.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.recordAudit(ctx, actorID, "item.delete", id, nil)
	return nil
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	return s.repo.Get(ctx, id)
}

// ListAll fetches the whole collection; list views derive their
// sorted/filtered/paginated state from this snapshot.
func (s *Service) ListAll(ctx context.Context) ([]Item, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory_item",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
