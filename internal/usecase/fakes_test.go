package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

var testNow = time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type fakeProducts struct {
	mu        sync.Mutex
	items     map[string]*domain.Product
	conflicts int // сколько следующих UpdateStock вернут конфликт версии
	updates   int
}

func newFakeProducts(ps ...*domain.Product) *fakeProducts {
	f := &fakeProducts{items: map[string]*domain.Product{}}
	for _, p := range ps {
		f.items[p.ID] = p.Clone()
	}
	return f
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	return p.Clone(), nil
}

func (f *fakeProducts) FindByListingID(_ context.Context, ch domain.Channel, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		switch ch {
		case domain.ChannelPOS:
			if (p.PosItemID != nil && *p.PosItemID == id) || (p.PosVariationID != nil && *p.PosVariationID == id) {
				return p.Clone(), nil
			}
		case domain.ChannelMarketplace:
			if p.MarketplaceListingID != nil && *p.MarketplaceListingID == id {
				return p.Clone(), nil
			}
		}
	}
	return nil, e.ErrProductNotFound
}

func (f *fakeProducts) FindBySKU(_ context.Context, sku string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.SKU != nil && *p.SKU == sku {
			return p.Clone(), nil
		}
	}
	return nil, e.ErrProductNotFound
}

func (f *fakeProducts) UpdateStock(_ context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[p.ID]
	if !ok {
		return e.ErrProductNotFound
	}
	if f.conflicts > 0 {
		f.conflicts--
		cur.Version++
		return e.ErrVersionConflict
	}
	if cur.Version != p.Version {
		return e.ErrVersionConflict
	}
	p.Version++
	f.items[p.ID] = p.Clone()
	f.updates++
	return nil
}

func (f *fakeProducts) get(id string) *domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Clone()
}

type fakeSales struct {
	mu    sync.Mutex
	items map[string]*domain.Sale
}

func newFakeSales(ss ...*domain.Sale) *fakeSales {
	f := &fakeSales{items: map[string]*domain.Sale{}}
	for _, s := range ss {
		cp := *s
		f.items[s.ID] = &cp
	}
	return f
}

func (f *fakeSales) CreateBatch(_ context.Context, sales []*domain.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range sales {
		cp := *s
		f.items[s.ID] = &cp
	}
	return nil
}

func (f *fakeSales) GetByID(_ context.Context, id string) (*domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, e.ErrSaleNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSales) UpdateAttribution(_ context.Context, s *domain.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[s.ID]; !ok {
		return e.ErrSaleNotFound
	}
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeSales) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return e.ErrSaleNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeSales) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.items[id]; ok {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSales) List(_ context.Context, filter SaleFilter) ([]*domain.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Sale
	for _, s := range f.items {
		if filter.From != nil && s.SaleDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !s.SaleDate.Before(*filter.To) {
			continue
		}
		if filter.Attribue != nil && s.Attribue != *filter.Attribue {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSales) ExistsByExternalRef(_ context.Context, refs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, r := range refs {
		for _, s := range f.items {
			if s.ExternalRef != nil && *s.ExternalRef == r {
				out[r] = true
			}
		}
	}
	return out, nil
}

func (f *fakeSales) all() []*domain.Sale {
	out, _ := f.List(context.Background(), SaleFilter{})
	return out
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
}

func (f *fakeOutbox) Create(_ context.Context, ev *domain.OutboxEvent) (*domain.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev.ID = int64(len(f.events) + 1)
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeOutbox) GetAndMarkAsProcessing(context.Context, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkAsProcessed(context.Context, int64) error { return nil }

func (f *fakeOutbox) count(t domain.OutboxEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.EventType == t {
			n++
		}
	}
	return n
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakeEvents struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newFakeEvents() *fakeEvents { return &fakeEvents{claimed: map[string]bool{}} }

func (f *fakeEvents) Claim(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeEvents) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	return nil
}

type delistCall struct {
	channel   domain.Channel
	listingID string
}

type fakeDelister struct {
	ch    domain.Channel
	err   error
	mu    sync.Mutex
	calls []delistCall
}

func (f *fakeDelister) Channel() domain.Channel { return f.ch }

func (f *fakeDelister) Delist(_ context.Context, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, delistCall{channel: f.ch, listingID: listingID})
	return f.err
}

func (f *fakeDelister) called() []delistCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delistCall(nil), f.calls...)
}

type fakeCatalog struct {
	mu        sync.Mutex
	objects   map[string]*CatalogObject
	inventory map[string]int
}

func (f *fakeCatalog) RetrieveCatalogObject(_ context.Context, id string) (*CatalogObject, error) {
	obj, ok := f.objects[id]
	if !ok {
		return nil, e.ErrUpstreamChannel
	}
	return obj, nil
}

func (f *fakeCatalog) SetInventoryCount(_ context.Context, variationID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inventory == nil {
		f.inventory = map[string]int{}
	}
	f.inventory[variationID] = qty
	return nil
}

type fakeArchive struct {
	reqs []*ArchiveSalesReq
	err  error
}

func (f *fakeArchive) ArchiveSales(_ context.Context, req *ArchiveSalesReq) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.reqs = append(f.reqs, req)
	return "sales/" + req.Reason + ".json", nil
}

type fakeOrders struct {
	orders []*domain.Order
}

func (f *fakeOrders) Create(_ context.Context, o *domain.Order) error {
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeOrders) ListByBuyerBetween(_ context.Context, email string, from, to time.Time) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range f.orders {
		if o.BuyerEmail == email && !o.SaleDate.Before(from) && o.SaleDate.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeSessions struct {
	items map[string]*domain.CheckoutSession
}

func (f *fakeSessions) Save(_ context.Context, s *domain.CheckoutSession) error {
	if f.items == nil {
		f.items = map[string]*domain.CheckoutSession{}
	}
	f.items[s.ID] = s
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*domain.CheckoutSession, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, e.ErrCheckoutSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	delete(f.items, id)
	return nil
}

type staticSnapshots struct {
	snap *domain.DepositorSnapshot
}

func (s staticSnapshots) Snapshot(context.Context) (*domain.DepositorSnapshot, error) {
	return s.snap, nil
}

func testSnapshots() staticSnapshots {
	return staticSnapshots{snap: domain.NewDepositorSnapshot([]domain.Depositor{
		{Trigramme: "ABC", Name: "Atelier Blanc", Policy: domain.PolicyNormal},
		{Trigramme: "SMB", Name: "Small Batch Studio", Policy: domain.PolicySmallBatch},
	}, testNow)}
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

// env собирает сценарии поверх общих фейков.
type env struct {
	products    *fakeProducts
	sales       *fakeSales
	outbox      *fakeOutbox
	events      *fakeEvents
	pos         *fakeDelister
	marketplace *fakeDelister
	catalog     *fakeCatalog
	archive     *fakeArchive
	engine      *DispositionEngine
	dispatcher  *DelistingDispatcher
}

func newEnv(products ...*domain.Product) *env {
	ev := &env{
		products:    newFakeProducts(products...),
		sales:       newFakeSales(),
		outbox:      &fakeOutbox{},
		events:      newFakeEvents(),
		pos:         &fakeDelister{ch: domain.ChannelPOS},
		marketplace: &fakeDelister{ch: domain.ChannelMarketplace},
		catalog:     &fakeCatalog{objects: map[string]*CatalogObject{}},
		archive:     &fakeArchive{},
	}

	log := logger.NewNop()
	ev.engine = NewDispositionEngine(ev.products, ev.sales, ev.outbox, fakeTx{}, testSnapshots(), nil, log, 5)
	ev.engine.backoffBase = time.Millisecond
	ev.engine.backoffMax = 2 * time.Millisecond
	ev.engine.now = func() time.Time { return testNow }
	ev.engine.newID = sequentialIDs("sale")

	ev.dispatcher = NewDelistingDispatcher(time.Second, nil, log, ev.pos, ev.marketplace)
	return ev
}

func (ev *env) waitDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = ev.dispatcher.Wait(ctx)
}
