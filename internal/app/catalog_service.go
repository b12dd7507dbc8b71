package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"testyourself-core/internal/domain"
)

const (
	CatalogCollection  = "catalog"
	InstanceCollection = "course_instances"

	DefaultInstanceOrder = 1
)

// instanceNamespace seeds deterministic course instance ids.
var instanceNamespace = uuid.MustParse("6f1c1d2e-8b7a-4c55-9a63-2f0e4d9b7c10")

// InstanceID derives the id a new instance for (catalogID, context) is created under.
func InstanceID(catalogID string, c domain.DeliveryContext) string {
	c = c.Normalized()
	key := strings.Join([]string{catalogID, c.Medium, c.Board, c.ExamID}, "|")
	return uuid.NewSHA1(instanceNamespace, []byte(key)).String()
}

// EnsureInstanceRequest identifies the course instance to resolve or create.
// A nil Order means DefaultInstanceOrder.
type EnsureInstanceRequest struct {
	CatalogID string
	Context   domain.DeliveryContext
	Order     *int
}

// CatalogService owns catalog entries and resolves course instances per delivery context.
type CatalogService struct {
	docs   DocumentStore
	now    func() time.Time
	logger *log.Logger
}

func NewCatalogService(docs DocumentStore, logger *log.Logger) *CatalogService {
	return &CatalogService{
		docs:   docs,
		now:    time.Now,
		logger: componentLogger(logger, "catalog"),
	}
}

// CreateEntry stores a new catalog entry with a slug derived from its name.
func (s *CatalogService) CreateEntry(ctx context.Context, name string) (domain.CatalogEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.CatalogEntry{}, domain.ErrInvalidCatalogEntry
	}
	entry := domain.CatalogEntry{
		ID:   uuid.NewString(),
		Name: name,
		Slug: slug.Make(name),
	}
	now := s.now().UTC()
	err := s.docs.Set(ctx, CatalogCollection, entry.ID, map[string]any{
		"name":      entry.Name,
		"slug":      entry.Slug,
		"createdAt": now,
	}, false)
	if err != nil {
		return domain.CatalogEntry{}, fmt.Errorf("create catalog entry: %w", err)
	}
	return entry, nil
}

// Entry loads a catalog entry by id.
func (s *CatalogService) Entry(ctx context.Context, id string) (domain.CatalogEntry, error) {
	doc, err := s.docs.Get(ctx, CatalogCollection, id)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.CatalogEntry{}, fmt.Errorf("%w: %s", domain.ErrCatalogNotFound, id)
	}
	if err != nil {
		return domain.CatalogEntry{}, fmt.Errorf("load catalog entry %s: %w", id, err)
	}
	return domain.CatalogEntry{
		ID:   doc.ID,
		Name: stringField(doc.Fields, "name"),
		Slug: stringField(doc.Fields, "slug"),
	}, nil
}

// EnsureInstance returns the id of the course instance for (catalog, context),
// creating it on first use. Reuse never modifies the existing document.
func (s *CatalogService) EnsureInstance(ctx context.Context, req EnsureInstanceRequest) (string, error) {
	dc := req.Context.Normalized()
	if !dc.Valid() {
		return "", domain.ErrInvalidContext
	}

	filters := []Filter{
		{Field: "catalogId", Value: req.CatalogID},
		{Field: "medium", Value: dc.Medium},
	}
	if dc.Board != "" {
		filters = append(filters, Filter{Field: "board", Value: dc.Board})
	}
	if dc.ExamID != "" {
		filters = append(filters, Filter{Field: "examId", Value: dc.ExamID})
	}
	existing, err := s.docs.Query(ctx, InstanceCollection, filters, 1)
	if err != nil {
		return "", fmt.Errorf("find course instance: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	entry, err := s.Entry(ctx, req.CatalogID)
	if err != nil {
		return "", err
	}

	order := DefaultInstanceOrder
	if req.Order != nil {
		order = *req.Order
	}
	id := InstanceID(req.CatalogID, dc)
	now := s.now().UTC()
	err = s.docs.Set(ctx, InstanceCollection, id, map[string]any{
		"catalogId": req.CatalogID,
		"name":      entry.Name,
		"medium":    dc.Medium,
		"board":     optionalString(dc.Board),
		"examId":    optionalString(dc.ExamID),
		"order":     order,
		"enabled":   true,
		"createdAt": now,
		"updatedAt": now,
	}, true)
	if err != nil {
		return "", fmt.Errorf("create course instance: %w", err)
	}
	s.logger.Info("course instance created", "id", id, "catalog", req.CatalogID,
		"medium", dc.Medium, "board", dc.Board, "exam", dc.ExamID)
	return id, nil
}
