package document

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines document persistence operations
type Repository interface {
	shared.Repository[Document]

	// FindByIDForUpdate loads a document with a row lock inside the
	// current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByNumber loads a document by its type and business number
	FindByNumber(ctx context.Context, docType Type, number string) (*Document, error)

	// FindByFilter lists documents with optional type, status and party
	// constraints
	FindByFilter(ctx context.Context, filter Filter) (*shared.Paginated[*Document], error)

	// FindByParent lists documents converted from the given source
	FindByParent(ctx context.Context, parentID uuid.UUID) ([]*Document, error)

	// SaveWithLock persists the document with an optimistic version
	// check, failing with STALE_STATE on a stale version
	SaveWithLock(ctx context.Context, doc *Document) error

	// SaveWithLockAndEvents persists the document and its pending domain
	// events to the outbox in one transaction
	SaveWithLockAndEvents(ctx context.Context, doc *Document, events []shared.DomainEvent) error

	// SaveAllWithEvents persists several documents and their pending
	// events atomically, used by conversions that touch source and
	// target together
	SaveAllWithEvents(ctx context.Context, docs []*Document, events []shared.DomainEvent) error
}

// Filter narrows document list queries
type Filter struct {
	shared.Filter
	Type    *Type
	Status  *Status
	PartyID *uuid.UUID
	Search  string
}
