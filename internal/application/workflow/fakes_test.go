package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory doubles for the repositories the services depend on. They
// keep the aggregates by reference, which is exactly what the service
// layer sees inside one request.

type fakeDocumentRepo struct {
	mu     sync.Mutex
	docs   map[uuid.UUID]*document.Document
	events []shared.DomainEvent
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*document.Document)}
}

func (f *fakeDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocumentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeDocumentRepo) FindByNumber(_ context.Context, docType document.Type, number string) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.Type == docType && doc.Number == number {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeDocumentRepo) FindAll(_ context.Context, _ shared.Filter) ([]document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]document.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (f *fakeDocumentRepo) FindByFilter(_ context.Context, filter document.Filter) (*shared.Paginated[*document.Document], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []*document.Document
	for _, doc := range f.docs {
		if filter.Type != nil && doc.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		if filter.PartyID != nil && doc.PartyID != *filter.PartyID {
			continue
		}
		if filter.Search != "" && !strings.Contains(doc.Number, filter.Search) {
			continue
		}
		items = append(items, doc)
	}
	page := shared.NewPaginated(items, int64(len(items)), 1, len(items)+1)
	return &page, nil
}

func (f *fakeDocumentRepo) FindByParent(_ context.Context, parentID uuid.UUID) ([]*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*document.Document
	for _, doc := range f.docs {
		if doc.ParentID != nil && *doc.ParentID == parentID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) Save(_ context.Context, doc *document.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) SaveWithLock(ctx context.Context, doc *document.Document) error {
	return f.Save(ctx, doc)
}

func (f *fakeDocumentRepo) SaveWithLockAndEvents(ctx context.Context, doc *document.Document, events []shared.DomainEvent) error {
	if err := f.Save(ctx, doc); err != nil {
		return err
	}
	f.mu.Lock()
	f.events = append(f.events, events...)
	f.mu.Unlock()
	return nil
}

func (f *fakeDocumentRepo) SaveAllWithEvents(ctx context.Context, docs []*document.Document, events []shared.DomainEvent) error {
	for _, doc := range docs {
		if err := f.Save(ctx, doc); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.events = append(f.events, events...)
	f.mu.Unlock()
	return nil
}

func (f *fakeDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.docs)), nil
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	balances map[string]*finance.PartyBalance
	txs      []*finance.BalanceTransaction
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]*finance.PartyBalance)}
}

func balanceKey(partyID uuid.UUID, side finance.Side) string {
	return partyID.String() + "/" + string(side)
}

func (f *fakeBalanceRepo) FindByParty(_ context.Context, partyID uuid.UUID, side finance.Side) (*finance.PartyBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[balanceKey(partyID, side)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (f *fakeBalanceRepo) FindByPartyForUpdate(_ context.Context, partyID uuid.UUID, side finance.Side) (*finance.PartyBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[balanceKey(partyID, side)]; ok {
		return b, nil
	}
	b, err := finance.NewPartyBalance(partyID, side)
	if err != nil {
		return nil, err
	}
	f.balances[balanceKey(partyID, side)] = b
	return b, nil
}

func (f *fakeBalanceRepo) Save(_ context.Context, balance *finance.PartyBalance, txs ...*finance.BalanceTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[balanceKey(balance.PartyID, balance.Side)] = balance
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeBalanceRepo) FindTransactions(_ context.Context, partyID uuid.UUID, side finance.Side, limit int) ([]*finance.BalanceTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*finance.BalanceTransaction
	for i := len(f.txs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if f.txs[i].PartyID == partyID && f.txs[i].Side == side {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

func (f *fakeBalanceRepo) FindAllTransactions(_ context.Context, partyID uuid.UUID, side finance.Side) ([]*finance.BalanceTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*finance.BalanceTransaction
	for _, tx := range f.txs {
		if tx.PartyID == partyID && tx.Side == side {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeLedgerRepo struct {
	mu   sync.Mutex
	rows []*ledger.Consumption
}

func (f *fakeLedgerRepo) Save(_ context.Context, rows ...*ledger.Consumption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeLedgerRepo) FindByUpstreamLine(_ context.Context, upstreamLineID uuid.UUID) ([]*ledger.Consumption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Consumption
	for _, r := range f.rows {
		if r.UpstreamLineID == upstreamLineID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) FindByDownstreamDocument(_ context.Context, downstreamDocID uuid.UUID) ([]*ledger.Consumption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*ledger.Consumption
	for _, r := range f.rows {
		if r.DownstreamDocumentID == downstreamDocID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) Exists(_ context.Context, downstreamLineID uuid.UUID, direction ledger.Direction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.DownstreamLineID == downstreamLineID && r.Direction == direction {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedgerRepo) SumByUpstreamLine(_ context.Context, upstreamLineID uuid.UUID, kind document.ConsumptionKind) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, r := range f.rows {
		if r.UpstreamLineID != upstreamLineID || r.Kind != kind {
			continue
		}
		if r.Direction == ledger.DirectionConsume {
			sum = sum.Add(r.Quantity)
		} else {
			sum = sum.Sub(r.Quantity)
		}
	}
	return sum, nil
}

type fakeSequences struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeSequences() *fakeSequences {
	return &fakeSequences{values: make(map[string]int64)}
}

func (f *fakeSequences) Next(_ context.Context, scope string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[scope]++
	return f.values[scope], nil
}

func (f *fakeSequences) Current(_ context.Context, scope string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[scope], nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]*catalog.Product
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[uuid.UUID]*catalog.Product)}
}

func (f *fakeCatalog) add(p *catalog.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeCatalog) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (f *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existed := f.keys[key]
	f.keys[key] = true
	return !existed, nil
}

func (f *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeIdempotencyStore) Close() error { return nil }

// fakeTxRunner runs the unit of work directly; the in-memory repositories
// mutate aggregates by reference and have nothing to roll back
type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testEnv struct {
	docRepo     *fakeDocumentRepo
	balanceRepo *fakeBalanceRepo
	ledgerRepo  *fakeLedgerRepo
	idempotency *fakeIdempotencyStore
	documents   *DocumentService
	conversions *ConversionService
	payments    *PaymentService
}

func newTestEnv() *testEnv {
	docRepo := newFakeDocumentRepo()
	balanceRepo := newFakeBalanceRepo()
	ledgerRepo := &fakeLedgerRepo{}
	idempotency := newFakeIdempotencyStore()
	numbers := numbering.NewGenerator(newFakeSequences())
	quantities := ledger.NewService(ledgerRepo)

	return &testEnv{
		docRepo:     docRepo,
		balanceRepo: balanceRepo,
		ledgerRepo:  ledgerRepo,
		idempotency: idempotency,
		documents:   NewDocumentService(docRepo, balanceRepo, numbers, quantities, fakeTxRunner{}),
		conversions: NewConversionService(docRepo, balanceRepo, numbers, quantities, fakeTxRunner{}),
		payments:    NewPaymentService(docRepo, balanceRepo, idempotency, fakeTxRunner{}),
	}
}
