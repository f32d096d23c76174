// Package apptest provee una implementación en memoria de los puertos de persistencia para tests de casos de uso.
// Modela transacciones (rollback por undo-log) y los bloqueos por par (artículo, ubicación) de la base real.
package apptest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/suministros-api/internal/application/ports"
	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/jhoicas/suministros-api/internal/domain/location"
	"github.com/jhoicas/suministros-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ErrInjected error provocado por FailMovementCreateAfter.
var ErrInjected = errors.New("apptest: falla inyectada")

// Store base de datos en memoria.
type Store struct {
	mu        sync.Mutex
	items     map[string]*entity.Item
	locations map[string]*entity.Location
	movements []*entity.Movement

	lockMu     sync.Mutex
	pairLocks  map[entity.PairKey]*sync.Mutex
	batchLocks map[string]*sync.Mutex
	treeLock   sync.Mutex

	// FailMovementCreateAfter > 0 hace fallar el N-ésimo Create de movimientos (contando desde 1).
	FailMovementCreateAfter int
	creates                 int

	// StockReadHook se invoca después de cada lectura de stock (permite forzar intercalados en tests).
	StockReadHook func(p entity.PairKey)
}

// NewStore crea un Store vacío.
func NewStore() *Store {
	return &Store{
		items:      make(map[string]*entity.Item),
		locations:  make(map[string]*entity.Location),
		pairLocks:  make(map[entity.PairKey]*sync.Mutex),
		batchLocks: make(map[string]*sync.Mutex),
	}
}

// tx estado de una transacción en curso.
type tx struct {
	undo  []func()
	locks []*sync.Mutex
}

func (t *tx) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

// Repos devuelve repositorios fuera de transacción.
func (s *Store) Repos() ports.TxRepos {
	return s.repos(nil)
}

func (s *Store) repos(t *tx) ports.TxRepos {
	return ports.TxRepos{
		Items:     &ItemRepo{s: s, tx: t},
		Locations: &LocationRepo{s: s, tx: t},
		Movements: &MovementRepo{s: s, tx: t},
		Stock:     &StockRepo{s: s, tx: t},
	}
}

// TxRunner implementa ports.TxRunner sobre el Store.
func (s *Store) TxRunner() ports.TxRunner { return txRunner{s: s} }

type txRunner struct{ s *Store }

func (r txRunner) Run(ctx context.Context, fn func(repos ports.TxRepos) error) error {
	t := &tx{}
	defer func() {
		for i := len(t.locks) - 1; i >= 0; i-- {
			t.locks[i].Unlock()
		}
	}()
	if err := fn(r.s.repos(t)); err != nil {
		r.s.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		r.s.mu.Unlock()
		return err
	}
	return nil
}

// ── Items ────────────────────────────────────────────────────────────────────

// ItemRepo implementa repository.ItemRepository.
type ItemRepo struct {
	s  *Store
	tx *tx
}

var _ repository.ItemRepository = (*ItemRepo)(nil)

func (r *ItemRepo) Create(_ context.Context, item *entity.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.SKU == item.SKU {
			return domain.Conflict("ya existe un artículo con ese SKU")
		}
	}
	cp := *item
	r.s.items[item.ID] = &cp
	r.tx.onRollback(func() { delete(r.s.items, item.ID) })
	return nil
}

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if it, ok := r.s.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, nil
}

func (r *ItemRepo) GetBySKU(_ context.Context, sku string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.SKU == sku {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ItemRepo) Update(_ context.Context, item *entity.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.items[item.ID]
	if !ok {
		return nil
	}
	cp := *item
	r.s.items[item.ID] = &cp
	r.tx.onRollback(func() { r.s.items[item.ID] = prev })
	return nil
}

func (r *ItemRepo) List(_ context.Context, f repository.ItemFilter) ([]*entity.Item, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Item
	for _, it := range r.s.items {
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Search != "" && !containsFold(f.Search, it.SKU, it.Name, it.Category) {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	return paginate(out, f.Limit, f.Offset), total, nil
}

// ── Locations ────────────────────────────────────────────────────────────────

// LocationRepo implementa repository.LocationRepository.
type LocationRepo struct {
	s  *Store
	tx *tx
}

var _ repository.LocationRepository = (*LocationRepo)(nil)

func (r *LocationRepo) Create(_ context.Context, loc *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.locations {
		if l.Code == loc.Code {
			return domain.Conflict("ya existe una ubicación con ese código")
		}
	}
	cp := *loc
	r.s.locations[loc.ID] = &cp
	r.tx.onRollback(func() { delete(r.s.locations, loc.ID) })
	return nil
}

func (r *LocationRepo) GetByID(_ context.Context, id string) (*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.locations[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *LocationRepo) GetByCode(_ context.Context, code string) (*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.locations {
		if l.Code == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *LocationRepo) Update(_ context.Context, loc *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.locations {
		if l.Code == loc.Code && l.ID != loc.ID {
			return domain.Conflict("ya existe una ubicación con ese código")
		}
	}
	prev, ok := r.s.locations[loc.ID]
	if !ok {
		return nil
	}
	cp := *loc
	r.s.locations[loc.ID] = &cp
	r.tx.onRollback(func() { r.s.locations[loc.ID] = prev })
	return nil
}

func (r *LocationRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.locations[id]
	if !ok {
		return nil
	}
	delete(r.s.locations, id)
	r.tx.onRollback(func() { r.s.locations[id] = prev })
	return nil
}

func (r *LocationRepo) List(_ context.Context, f repository.LocationFilter) ([]*entity.Location, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Location
	for _, l := range r.s.locations {
		if f.Active != nil && l.IsActive != *f.Active {
			continue
		}
		if f.RootsOnly && l.ParentID != nil {
			continue
		}
		if f.ParentID != nil && (l.ParentID == nil || *l.ParentID != *f.ParentID) {
			continue
		}
		if f.Search != "" && !containsFold(f.Search, l.Code, l.Name) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	total := len(out)
	return paginate(out, f.Limit, f.Offset), total, nil
}

func (r *LocationRepo) ListAll(_ context.Context, activeOnly bool) ([]*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.allLocations(activeOnly), nil
}

func (s *Store) allLocations(activeOnly bool) []*entity.Location {
	out := make([]*entity.Location, 0, len(s.locations))
	for _, l := range s.locations {
		if activeOnly && !l.IsActive {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *LocationRepo) DescendantIDs(_ context.Context, id string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return location.GetAllChildrenIDs(id, r.s.allLocations(false)), nil
}

func (r *LocationRepo) Ancestors(_ context.Context, id string) ([]*entity.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var path []*entity.Location
	seen := map[string]bool{id: true}
	cur, ok := r.s.locations[id]
	for ok && cur.ParentID != nil && !seen[*cur.ParentID] {
		seen[*cur.ParentID] = true
		cur, ok = r.s.locations[*cur.ParentID]
		if ok {
			cp := *cur
			path = append([]*entity.Location{&cp}, path...)
		}
	}
	return path, nil
}

func (r *LocationRepo) MaxDescendantLevel(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	self, ok := r.s.locations[id]
	if !ok {
		return 0, nil
	}
	return self.Level + location.MaxRelativeDepth(id, r.s.allLocations(false)), nil
}

func (r *LocationRepo) ShiftDescendantLevels(_ context.Context, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range location.GetAllChildrenIDs(id, r.s.allLocations(false)) {
		l := r.s.locations[d]
		l.Level += delta
		r.tx.onRollback(func() { l.Level -= delta })
	}
	return nil
}

func (r *LocationRepo) CountChildren(_ context.Context, id string, activeOnly bool) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.locations {
		if l.ParentID != nil && *l.ParentID == id && (!activeOnly || l.IsActive) {
			n++
		}
	}
	return n, nil
}

func (r *LocationRepo) HasMovements(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.movements {
		if m.LocationID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *LocationRepo) DefaultLocationOf(_ context.Context, id string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for _, it := range r.s.items {
		if it.DefaultLocationID != nil && *it.DefaultLocationID == id {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[0], nil
}

func (r *LocationRepo) LockHierarchy(context.Context) error {
	if r.tx == nil {
		return nil
	}
	r.s.treeLock.Lock()
	r.tx.locks = append(r.tx.locks, &r.s.treeLock)
	return nil
}

// ── Movements ────────────────────────────────────────────────────────────────

// MovementRepo implementa repository.MovementRepository.
type MovementRepo struct {
	s  *Store
	tx *tx
}

var _ repository.MovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.creates++
	if r.s.FailMovementCreateAfter > 0 && r.s.creates == r.s.FailMovementCreateAfter {
		return ErrInjected
	}
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	r.tx.onRollback(func() { r.s.removeMovement(cp.ID) })
	return nil
}

func (s *Store) removeMovement(id string) {
	for i, m := range s.movements {
		if m.ID == id {
			s.movements = append(s.movements[:i], s.movements[i+1:]...)
			return
		}
	}
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.movements {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MovementRepo) Update(_ context.Context, m *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.movements {
		if cur.ID != m.ID {
			continue
		}
		prev := *cur
		cur.Operator, cur.Supplier, cur.Recipient, cur.Purpose, cur.Notes = m.Operator, m.Supplier, m.Recipient, m.Purpose, m.Notes
		r.tx.onRollback(func() { *cur = prev })
	}
	return nil
}

func (r *MovementRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, m := range r.s.movements {
		if m.ID == id {
			prev, pos := m, i
			r.s.movements = append(r.s.movements[:i], r.s.movements[i+1:]...)
			r.tx.onRollback(func() {
				r.s.movements = append(r.s.movements[:pos], append([]*entity.Movement{prev}, r.s.movements[pos:]...)...)
			})
			return nil
		}
	}
	return nil
}

func (r *MovementRepo) LockBatch(_ context.Context, batchID string) error {
	if r.tx == nil {
		return nil
	}
	r.s.lockMu.Lock()
	mu, ok := r.s.batchLocks[batchID]
	if !ok {
		mu = &sync.Mutex{}
		r.s.batchLocks[batchID] = mu
	}
	r.s.lockMu.Unlock()
	mu.Lock()
	r.tx.locks = append(r.tx.locks, mu)
	return nil
}

func (r *MovementRepo) CountByBatch(_ context.Context, batchID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.movements {
		if m.BatchID == batchID {
			n++
		}
	}
	return n, nil
}

func (r *MovementRepo) ListByBatch(_ context.Context, batchID string) ([]*entity.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Movement
	for _, m := range r.s.movements {
		if m.BatchID == batchID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Movement
	for _, m := range r.s.movements {
		switch {
		case f.ItemID != "" && m.ItemID != f.ItemID,
			f.LocationID != "" && m.LocationID != f.LocationID,
			f.Type != "" && m.Type != f.Type,
			f.BatchID != "" && m.BatchID != f.BatchID,
			f.Operator != "" && !containsFold(f.Operator, m.Operator),
			f.Supplier != "" && !containsFold(f.Supplier, m.Supplier),
			f.Recipient != "" && !containsFold(f.Recipient, m.Recipient),
			f.From != nil && m.Date.Before(*f.From),
			f.To != nil && m.Date.After(*f.To):
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	less := func(a, b *entity.Movement) bool {
		switch f.SortBy {
		case repository.MovementSortQuantity:
			return a.Quantity.LessThan(b.Quantity)
		case repository.MovementSortOperator:
			return a.Operator < b.Operator
		case repository.MovementSortCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Date.Before(b.Date)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	total := len(out)
	return paginate(out, f.Limit, f.Offset), total, nil
}

func (r *MovementRepo) ListRecentByItem(_ context.Context, itemID string, limit int) ([]*entity.Movement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Movement
	for _, m := range r.s.movements {
		if m.ItemID == itemID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return paginate(out, limit, 0), nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

// StockRepo implementa repository.StockRepository calculando el stock desde los movimientos.
type StockRepo struct {
	s  *Store
	tx *tx
}

var _ repository.StockRepository = (*StockRepo)(nil)

func (r *StockRepo) LockPairs(_ context.Context, pairs []entity.PairKey) error {
	if r.tx == nil {
		return nil
	}
	for _, p := range pairs {
		r.s.lockMu.Lock()
		mu, ok := r.s.pairLocks[p]
		if !ok {
			mu = &sync.Mutex{}
			r.s.pairLocks[p] = mu
		}
		r.s.lockMu.Unlock()
		mu.Lock()
		r.tx.locks = append(r.tx.locks, mu)
	}
	return nil
}

func (r *StockRepo) MinBalanceFrom(_ context.Context, m *entity.Movement) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var pair []*entity.Movement
	for _, x := range r.s.movements {
		if x.Key() == m.Key() {
			pair = append(pair, x)
		}
	}
	sort.SliceStable(pair, func(i, j int) bool { return ledgerBefore(pair[i], pair[j]) })
	running, low, seen := decimal.Zero, decimal.Zero, false
	for _, x := range pair {
		running = running.Add(x.SignedQuantity())
		if ledgerBefore(x, m) {
			continue
		}
		if !seen || running.LessThan(low) {
			low, seen = running, true
		}
	}
	return low, nil
}

// ledgerBefore orden del libro mayor: (date, created_at, id).
func ledgerBefore(a, b *entity.Movement) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (r *StockRepo) CurrentStock(_ context.Context, itemID, locationID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	total := decimal.Zero
	for _, m := range r.s.movements {
		if m.ItemID == itemID && m.LocationID == locationID {
			total = total.Add(m.SignedQuantity())
		}
	}
	hook := r.s.StockReadHook
	r.s.mu.Unlock()
	if hook != nil {
		hook(entity.PairKey{ItemID: itemID, LocationID: locationID})
	}
	return total, nil
}

// rows agrega los movimientos por par (equivale a la vista current_inventory + joins).
func (s *Store) rows() []entity.InventoryRow {
	idx := make(map[entity.PairKey]int)
	var out []entity.InventoryRow
	for _, m := range s.movements {
		k := m.Key()
		i, ok := idx[k]
		if !ok {
			item := s.items[m.ItemID]
			loc := s.locations[m.LocationID]
			if item == nil || loc == nil {
				continue
			}
			out = append(out, entity.InventoryRow{
				ItemID: item.ID, SKU: item.SKU, ItemName: item.Name, Category: item.Category, Unit: item.Unit,
				LocationID: loc.ID, LocationCode: loc.Code, LocationName: loc.Name,
				LowStockThreshold: item.LowStockThreshold,
			})
			i = len(out) - 1
			idx[k] = i
		}
		out[i].CurrentStock = out[i].CurrentStock.Add(m.SignedQuantity())
		if out[i].LastTransactionDate == nil || m.Date.After(*out[i].LastTransactionDate) {
			d := m.Date
			out[i].LastTransactionDate = &d
		}
	}
	return out
}

func (r *StockRepo) InventoryStatus(_ context.Context, f repository.InventoryFilter) ([]entity.InventoryRow, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.InventoryRow
	for _, row := range r.s.rows() {
		switch {
		case f.Search != "" && !containsFold(f.Search, row.ItemName, row.SKU, row.Category, row.LocationName, row.LocationCode),
			f.Category != "" && !strings.EqualFold(row.Category, f.Category),
			f.LocationID != "" && row.LocationID != f.LocationID,
			f.LowStock != nil && row.IsLowStock() != *f.LowStock,
			f.HasStock != nil && row.CurrentStock.IsPositive() != *f.HasStock,
			f.MinStock != nil && row.CurrentStock.LessThan(*f.MinStock),
			f.MaxStock != nil && row.CurrentStock.GreaterThan(*f.MaxStock):
			continue
		}
		out = append(out, row)
	}
	less := func(a, b entity.InventoryRow) bool {
		switch f.SortBy {
		case repository.InventorySortLocation:
			return a.LocationCode < b.LocationCode
		case repository.InventorySortStock:
			return a.CurrentStock.LessThan(b.CurrentStock)
		case repository.InventorySortLastMoved:
			return a.LastTransactionDate.Before(*b.LastTransactionDate)
		}
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		return a.LocationCode < b.LocationCode
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	total := len(out)
	return paginate(out, f.Limit, f.Offset), total, nil
}

func (r *StockRepo) ItemStock(_ context.Context, itemID string) ([]entity.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.InventoryRow
	for _, row := range r.s.rows() {
		if row.ItemID == itemID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationCode < out[j].LocationCode })
	return out, nil
}

func (r *StockRepo) LowStock(_ context.Context, threshold *decimal.Decimal) ([]entity.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.InventoryRow
	for _, row := range r.s.rows() {
		limit := row.LowStockThreshold
		if threshold != nil {
			limit = *threshold
		}
		if row.LowStockThreshold.IsPositive() && row.CurrentStock.LessThanOrEqual(limit) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *StockRepo) LocationStock(_ context.Context, locationID string) ([]entity.InventoryRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.InventoryRow
	for _, row := range r.s.rows() {
		if row.LocationID == locationID && row.CurrentStock.IsPositive() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out, nil
}

func (r *StockRepo) Statistics(_ context.Context, top int) (*entity.InventoryStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &entity.InventoryStatistics{TotalItems: len(r.s.items), TotalStock: decimal.Zero}
	for _, l := range r.s.locations {
		if l.IsActive {
			stats.TotalLocations++
		}
	}
	perItem := make(map[string]decimal.Decimal)
	cats := make(map[string]*entity.CategoryStock)
	catItems := make(map[string]map[string]bool)
	locs := make(map[string]*entity.LocationStock)
	for _, row := range r.s.rows() {
		stats.TotalStock = stats.TotalStock.Add(row.CurrentStock)
		perItem[row.ItemID] = perItem[row.ItemID].Add(row.CurrentStock)
		if row.RaisesAlert() {
			stats.LowStockCount++
		}
		c, ok := cats[row.Category]
		if !ok {
			c = &entity.CategoryStock{Category: row.Category}
			cats[row.Category] = c
			catItems[row.Category] = map[string]bool{}
		}
		c.TotalStock = c.TotalStock.Add(row.CurrentStock)
		if row.CurrentStock.IsPositive() {
			catItems[row.Category][row.ItemID] = true
		}
		l, ok := locs[row.LocationID]
		if !ok {
			l = &entity.LocationStock{LocationID: row.LocationID, Code: row.LocationCode, Name: row.LocationName}
			locs[row.LocationID] = l
		}
		l.TotalStock = l.TotalStock.Add(row.CurrentStock)
		if row.CurrentStock.IsPositive() {
			l.ItemCount++
		}
	}
	for id := range r.s.items {
		if !perItem[id].IsPositive() {
			stats.ZeroStockCount++
		}
	}
	for name, c := range cats {
		c.ItemCount = len(catItems[name])
		stats.TopCategories = append(stats.TopCategories, *c)
	}
	sort.Slice(stats.TopCategories, func(i, j int) bool {
		a, b := stats.TopCategories[i], stats.TopCategories[j]
		if c := a.TotalStock.Cmp(b.TotalStock); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})
	for _, l := range locs {
		stats.TopLocations = append(stats.TopLocations, *l)
	}
	sort.Slice(stats.TopLocations, func(i, j int) bool {
		a, b := stats.TopLocations[i], stats.TopLocations[j]
		if c := a.TotalStock.Cmp(b.TotalStock); c != 0 {
			return c > 0
		}
		return a.Code < b.Code
	})
	stats.TopCategories = paginate(stats.TopCategories, top, 0)
	stats.TopLocations = paginate(stats.TopLocations, top, 0)
	return stats, nil
}

func (r *StockRepo) NetBefore(_ context.Context, itemID string, locationID *string, before time.Time) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, m := range r.s.movements {
		if m.ItemID == itemID && (locationID == nil || m.LocationID == *locationID) && m.Date.Before(before) {
			total = total.Add(m.SignedQuantity())
		}
	}
	return total, nil
}

func (r *StockRepo) DailyTotals(_ context.Context, itemID string, locationID *string, from time.Time) ([]inventory.DailyTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay := make(map[time.Time]*inventory.DailyTotal)
	for _, m := range r.s.movements {
		if m.ItemID != itemID || (locationID != nil && m.LocationID != *locationID) || m.Date.Before(from) {
			continue
		}
		day := inventory.TruncateDay(m.Date)
		t, ok := byDay[day]
		if !ok {
			t = &inventory.DailyTotal{Day: day}
			byDay[day] = t
		}
		if m.Type == entity.MovementInbound {
			t.Inbound = t.Inbound.Add(m.Quantity)
		} else {
			t.Outbound = t.Outbound.Add(m.Quantity)
		}
	}
	out := make([]inventory.DailyTotal, 0, len(byDay))
	for _, t := range byDay {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// ── Helpers de test ──────────────────────────────────────────────────────────

// MovementCount número de movimientos persistidos.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// Seed inserta movimientos sin validar (para preparar escenarios con fechas pasadas).
func (s *Store) Seed(movs ...*entity.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movs {
		cp := *m
		s.movements = append(s.movements, &cp)
	}
}

func containsFold(needle string, haystack ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
