package service

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/internal/gateway"
	"github.com/bazaarhq/bazaar/internal/store"
	"github.com/bazaarhq/bazaar/internal/store/db"
	"github.com/google/uuid"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users map[uuid.UUID]*db.User
}

func newFakeUserStore(users ...*db.User) *fakeUserStore {
	m := &fakeUserStore{users: map[uuid.UUID]*db.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *fakeUserStore) FindUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (m *fakeUserStore) FindUserByUsername(_ context.Context, username string) (*db.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

// fakeCartStore is an in-memory CartStore. Lines are kept in insertion order.
type fakeCartStore struct {
	storeItems map[uuid.UUID]*db.FindStoreItemByIDRow
	carts      map[uuid.UUID]*db.Cart
	items      []*db.CartItem
	// racingAdd makes the next CreateCartItem behave as if another request inserted the line first.
	racingAdd int32
	deleted   []uuid.UUID
}

func newFakeCartStore(storeItems ...*db.FindStoreItemByIDRow) *fakeCartStore {
	m := &fakeCartStore{storeItems: map[uuid.UUID]*db.FindStoreItemByIDRow{}, carts: map[uuid.UUID]*db.Cart{}}
	for _, si := range storeItems {
		m.storeItems[si.ID] = si
	}
	return m
}

func (m *fakeCartStore) FindStoreItem(_ context.Context, id uuid.UUID) (*db.FindStoreItemByIDRow, error) {
	if si, ok := m.storeItems[id]; ok {
		return si, nil
	}
	return nil, apperrors.ErrStoreItemNotFound
}

func (m *fakeCartStore) FindActiveCart(_ context.Context, userID uuid.UUID) (*db.Cart, error) {
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return nil, apperrors.ErrCartNotFound
}

func (m *fakeCartStore) CreateCart(_ context.Context, userID uuid.UUID) (*db.Cart, error) {
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	c := &db.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	m.carts[userID] = c
	return c, nil
}

func (m *fakeCartStore) FindCartItems(_ context.Context, cartID uuid.UUID) ([]db.FindCartItemsRow, error) {
	var rows []db.FindCartItemsRow
	for _, it := range m.items {
		if it.CartID != cartID {
			continue
		}
		si := m.storeItems[it.StoreItemID]
		rows = append(rows, db.FindCartItemsRow{
			ID:             it.ID,
			CartID:         it.CartID,
			StoreItemID:    it.StoreItemID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			TotalItemPrice: it.TotalItemPrice,
			TotalDiscount:  it.TotalDiscount,
			CreatedAt:      it.CreatedAt,
			Stock:          si.Stock,
			ProductName:    si.ProductName,
		})
	}
	return rows, nil
}

func (m *fakeCartStore) FindCartItemByStoreItem(_ context.Context, cartID, storeItemID uuid.UUID) (*db.CartItem, error) {
	for _, it := range m.items {
		if it.CartID == cartID && it.StoreItemID == storeItemID {
			return it, nil
		}
	}
	return nil, apperrors.ErrCartItemNotFound
}

func (m *fakeCartStore) FindCartItem(_ context.Context, id uuid.UUID) (*db.FindCartItemWithOwnerRow, error) {
	for _, it := range m.items {
		if it.ID != id {
			continue
		}
		var owner uuid.UUID
		for userID, c := range m.carts {
			if c.ID == it.CartID {
				owner = userID
			}
		}
		return &db.FindCartItemWithOwnerRow{
			ID:             it.ID,
			CartID:         it.CartID,
			StoreItemID:    it.StoreItemID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			TotalItemPrice: it.TotalItemPrice,
			TotalDiscount:  it.TotalDiscount,
			CreatedAt:      it.CreatedAt,
			OwnerID:        owner,
		}, nil
	}
	return nil, apperrors.ErrCartItemNotFound
}

func (m *fakeCartStore) CreateCartItem(_ context.Context, p db.CreateCartItemParams) (*db.CartItem, error) {
	if m.racingAdd > 0 {
		// the competing request added racingAdd units at the same snapshot price
		q := m.racingAdd
		m.racingAdd = 0
		m.items = append(m.items, &db.CartItem{
			ID: uuid.New(), CartID: p.CartID, StoreItemID: p.StoreItemID, Quantity: q,
			UnitPrice: p.UnitPrice, TotalItemPrice: p.UnitPrice * int64(q),
			TotalDiscount: p.TotalDiscount / int64(p.Quantity) * int64(q), CreatedAt: time.Now(),
		})
		return nil, apperrors.ErrCartItemExists
	}
	for _, it := range m.items {
		if it.CartID == p.CartID && it.StoreItemID == p.StoreItemID {
			return nil, apperrors.ErrCartItemExists
		}
	}
	it := &db.CartItem{
		ID:             uuid.New(),
		CartID:         p.CartID,
		StoreItemID:    p.StoreItemID,
		Quantity:       p.Quantity,
		UnitPrice:      p.UnitPrice,
		TotalItemPrice: p.TotalItemPrice,
		TotalDiscount:  p.TotalDiscount,
		CreatedAt:      time.Now(),
	}
	m.items = append(m.items, it)
	return it, nil
}

func (m *fakeCartStore) UpdateCartItem(_ context.Context, p db.UpdateCartItemQuantityParams) (*db.CartItem, error) {
	for _, it := range m.items {
		if it.ID == p.ID {
			it.Quantity = p.Quantity
			it.TotalItemPrice = p.TotalItemPrice
			it.TotalDiscount = p.TotalDiscount
			return it, nil
		}
	}
	return nil, apperrors.ErrCartItemNotFound
}

func (m *fakeCartStore) DeleteCartItem(_ context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	for i, it := range m.items {
		if it.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			break
		}
	}
	return nil
}

// fakeOrderStore is an in-memory OrderStore.
type fakeOrderStore struct {
	addresses map[uuid.UUID]uuid.UUID // address id -> owner
	orders    map[uuid.UUID]*db.Order
	items     map[uuid.UUID][]db.OrderItem
	sellers   map[uuid.UUID]uuid.UUID // order id -> seller

	placeErr  error
	placed    []store.PlaceOrderParams
	cancelled []uuid.UUID
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		addresses: map[uuid.UUID]uuid.UUID{},
		orders:    map[uuid.UUID]*db.Order{},
		items:     map[uuid.UUID][]db.OrderItem{},
		sellers:   map[uuid.UUID]uuid.UUID{},
	}
}

func (m *fakeOrderStore) addOrder(o *db.Order, seller uuid.UUID) {
	m.orders[o.ID] = o
	m.sellers[o.ID] = seller
}

func (m *fakeOrderStore) FindAddress(_ context.Context, userID, addressID uuid.UUID) (*db.Address, error) {
	if owner, ok := m.addresses[addressID]; ok && owner == userID {
		return &db.Address{ID: addressID, UserID: userID}, nil
	}
	return nil, apperrors.ErrAddressNotFound
}

func (m *fakeOrderStore) PlaceOrder(_ context.Context, p store.PlaceOrderParams) (*db.Order, []db.OrderItem, error) {
	m.placed = append(m.placed, p)
	if m.placeErr != nil {
		return nil, nil, m.placeErr
	}
	now := time.Now()
	o := &db.Order{ID: uuid.New(), UserID: p.UserID, AddressID: p.AddressID, Status: db.OrderStatusPending,
		TotalPrice: 300, CreatedAt: now, UpdatedAt: now}
	items := []db.OrderItem{{ID: uuid.New(), OrderID: o.ID, StoreItemID: uuid.New(), Quantity: 3, Price: 100, TotalPrice: 300, CreatedAt: now}}
	m.orders[o.ID] = o
	m.items[o.ID] = items
	return o, items, nil
}

func (m *fakeOrderStore) FindOrder(_ context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error) {
	if o, ok := m.orders[id]; ok {
		return o, m.items[id], nil
	}
	return nil, nil, apperrors.ErrOrderNotFound
}

func (m *fakeOrderStore) FindOrdersForBuyer(_ context.Context, p db.FindOrdersForBuyerParams) ([]db.Order, error) {
	var out []db.Order
	for _, o := range m.orders {
		if o.UserID == p.UserID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *fakeOrderStore) FindOrdersForSeller(_ context.Context, p db.FindOrdersForSellerParams) ([]db.Order, error) {
	var out []db.Order
	for id, seller := range m.sellers {
		if seller == p.SellerID {
			out = append(out, *m.orders[id])
		}
	}
	return out, nil
}

func (m *fakeOrderStore) SellerOwnsOrder(_ context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	seller, ok := m.sellers[orderID]
	return ok && seller == sellerID, nil
}

func (m *fakeOrderStore) TransitionOrder(_ context.Context, id uuid.UUID, from, to string) (*db.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return nil, apperrors.ErrOrderStatusConflict
	}
	o.Status = to
	return o, nil
}

func (m *fakeOrderStore) CancelOrder(_ context.Context, id uuid.UUID) (*db.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != db.OrderStatusPending {
		return nil, apperrors.ErrOrderStatusConflict
	}
	o.Status = db.OrderStatusCancelled
	m.cancelled = append(m.cancelled, id)
	return o, nil
}

// fakePaymentStore is an in-memory PaymentStore that advances orders held by a fakeOrderStore.
type fakePaymentStore struct {
	payments map[string]*db.Payment
	orders   *fakeOrderStore
	created  int
	settles  int
	// settleRace marks the payment verified by a concurrent request before settling.
	settleRace bool
}

func newFakePaymentStore(orders *fakeOrderStore) *fakePaymentStore {
	return &fakePaymentStore{payments: map[string]*db.Payment{}, orders: orders}
}

func (m *fakePaymentStore) CreatePayment(_ context.Context, p db.CreatePaymentParams) (*db.Payment, error) {
	m.created++
	pay := &db.Payment{ID: uuid.New(), OrderID: p.OrderID, TransactionID: p.TransactionID, Amount: p.Amount, Status: p.Status}
	m.payments[p.TransactionID] = pay
	return pay, nil
}

func (m *fakePaymentStore) FindPaymentByAuthority(_ context.Context, authority string) (*db.Payment, error) {
	if p, ok := m.payments[authority]; ok {
		return p, nil
	}
	return nil, apperrors.ErrPaymentNotFound
}

func (m *fakePaymentStore) SettlePayment(_ context.Context, p db.MarkPaymentVerifiedParams, orderID uuid.UUID) (*store.SettleResult, error) {
	var pay *db.Payment
	for _, candidate := range m.payments {
		if candidate.ID == p.ID {
			pay = candidate
		}
	}
	if m.settleRace {
		pay.Status = db.PaymentStatusVerified
		pay.ReferenceID = p.ReferenceID
	}
	if pay.Status != db.PaymentStatusPending {
		return nil, apperrors.ErrPaymentAlreadySettled
	}
	m.settles++
	pay.Status = db.PaymentStatusVerified
	pay.ReferenceID = p.ReferenceID
	pay.CardPan = p.CardPan
	pay.Fee = p.Fee

	advanced := false
	if o, ok := m.orders.orders[orderID]; ok && o.Status == db.OrderStatusPending {
		o.Status = db.OrderStatusProcessing
		advanced = true
	}
	return &store.SettleResult{Payment: pay, OrderAdvanced: advanced}, nil
}

// fakeGateway answers with the configured results and counts calls.
type fakeGateway struct {
	session      *gateway.Session
	requestErr   error
	verification *gateway.Verification
	verifyErr    error
	requests     []gateway.PaymentRequest
	verifies     int
}

func (g *fakeGateway) Request(_ context.Context, req gateway.PaymentRequest) (*gateway.Session, error) {
	g.requests = append(g.requests, req)
	if g.requestErr != nil {
		return nil, g.requestErr
	}
	return g.session, nil
}

func (g *fakeGateway) Verify(_ context.Context, _ string, _ int64) (*gateway.Verification, error) {
	g.verifies++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verification, nil
}

type notification struct {
	kind    string
	email   string
	orderID uuid.UUID
	code    string
}

// recordingNotifier records notifications instead of publishing them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyOrderReceived(_ context.Context, email string, orderID uuid.UUID, _ int64) {
	n.record(notification{kind: "order_received", email: email, orderID: orderID})
}

func (n *recordingNotifier) NotifyPaymentConfirmed(_ context.Context, email string, orderID uuid.UUID, _, _ int64) {
	n.record(notification{kind: "payment_confirmed", email: email, orderID: orderID})
}

func (n *recordingNotifier) NotifyOTP(_ context.Context, _, email, code string, _ time.Time) {
	n.record(notification{kind: "otp", email: email, code: code})
}

func (n *recordingNotifier) record(s notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, s)
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

func ptr[T any](v T) *T { return &v }
