package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dispatchops/api/internal/dates"
	"dispatchops/api/internal/geo"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSellerNotFound    = errors.New("seller has no pending pickups")
	ErrCustomerNotFound  = errors.New("customer has no orders awaiting delivery")
	ErrNothingToUpdate   = errors.New("no matching orders to update")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNoFeed            = errors.New("store has no order feed")
)

// Feed supplies a full batch of orders.
type Feed interface {
	Fetch(ctx context.Context) ([]Order, error)
}

// StatusSink acknowledges a batch status change before it is applied locally.
type StatusSink interface {
	UpdateStatus(ctx context.Context, ids []string, to Status) error
}

// Board is everything a dashboard needs for one render.
type Board struct {
	Result
	Locality      string           `json:"locality"`
	Origin        geo.Point        `json:"origin"`
	Pickup        Route            `json:"pickupRoute"`
	DeliveryStops []*CustomerGroup `json:"deliveryStops"`
	Dates         dates.Range      `json:"-"`
	DateLabel     string           `json:"dateLabel"`
	OrderTotal    int              `json:"orderTotal"`
	GeneratedAt   time.Time        `json:"generatedAt"`
}

type GroupsChanged struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
	Board  Board     `json:"board"`
	At     time.Time `json:"at"`
}

type StoreConfig struct {
	Classifier *Classifier
	Origin     geo.Point
	Feed       Feed
	Sink       StatusSink
	Logger     logrus.FieldLogger
}

// Store owns the session's order list. Every load or mutation is followed by
// a full reclassification; boards handed out are never modified afterwards.
type Store struct {
	classifier *Classifier
	origin     geo.Point
	feed       Feed
	sink       StatusSink
	log        logrus.FieldLogger

	// mutating serializes commands so a slow sink cannot interleave batches.
	mutating sync.Mutex

	mu      sync.RWMutex
	orders  []Order
	board   Board
	subs    map[int]func(GroupsChanged)
	nextSub int
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier(DefaultLocality)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	s := &Store{
		classifier: cfg.Classifier,
		origin:     cfg.Origin,
		feed:       cfg.Feed,
		sink:       cfg.Sink,
		log:        cfg.Logger.WithField("module", "dispatch"),
		subs:       map[int]func(GroupsChanged){},
	}
	s.board = s.build(nil)
	return s
}

// Reload replaces the order list with a fresh batch from the feed.
func (s *Store) Reload(ctx context.Context) error {
	if s.feed == nil {
		return ErrNoFeed
	}
	orders, err := s.feed.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	s.Replace(orders)
	return nil
}

func (s *Store) Replace(orders []Order) {
	s.mutating.Lock()
	defer s.mutating.Unlock()

	cp := make([]Order, len(orders))
	copy(cp, orders)

	s.mu.Lock()
	s.orders = cp
	s.board = s.build(cp)
	b := s.board
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"orders":  len(cp),
		"sellers": len(b.Sellers),
		"local":   len(b.LocalCustomers),
		"remote":  len(b.RemoteCustomers),
	}).Info("orders loaded")
	s.publish("reload", b)
}

func (s *Store) Board() Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Orders returns a copy of the current order list.
func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]Order, len(s.orders))
	copy(cp, s.orders)
	return cp
}

// MarkPickedUp moves every pending order of seller to picked up.
func (s *Store) MarkPickedUp(ctx context.Context, seller string) (int, error) {
	s.mutating.Lock()
	defer s.mutating.Unlock()

	g, ok := s.Board().Seller(strings.TrimSpace(seller))
	if !ok {
		return 0, ErrSellerNotFound
	}
	return s.commit(ctx, g.OrderIDs, StatusPickedUp, "picked up: "+g.Name)
}

// MarkDelivered moves every picked-up order on one customer card to
// delivered. remote picks the cross-border card over the local one.
func (s *Store) MarkDelivered(ctx context.Context, customer string, remote bool) (int, error) {
	s.mutating.Lock()
	defer s.mutating.Unlock()

	g, ok := s.Board().Customer(strings.TrimSpace(customer), remote)
	if !ok {
		return 0, ErrCustomerNotFound
	}
	reason := "delivered: " + g.Name
	if remote {
		reason += " (remote)"
	}
	return s.commit(ctx, g.OrderIDs, StatusDelivered, reason)
}

// Transition applies to to an explicit id batch. Ids already at to are
// skipped; any id whose current status cannot move to to fails the batch.
func (s *Store) Transition(ctx context.Context, ids []string, to Status) (int, error) {
	s.mutating.Lock()
	defer s.mutating.Unlock()

	want := map[string]struct{}{}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			want[id] = struct{}{}
		}
	}

	var send []string
	sent := map[string]struct{}{}
	matched := false
	for _, o := range s.Orders() {
		id := strings.TrimSpace(o.ID)
		if _, ok := want[id]; !ok {
			continue
		}
		matched = true
		if o.Status == to {
			continue
		}
		if !ValidTransition(o.Status, to) {
			return 0, fmt.Errorf("%w: order %s is %q", ErrInvalidTransition, id, o.Status)
		}
		if _, dup := sent[id]; !dup {
			sent[id] = struct{}{}
			send = append(send, id)
		}
	}
	if !matched {
		return 0, ErrNothingToUpdate
	}
	if len(send) == 0 {
		return 0, nil
	}
	return s.commit(ctx, send, to, "transition: "+string(to))
}

// commit asks the sink to acknowledge, then mutates and reclassifies.
// Callers hold s.mutating.
func (s *Store) commit(ctx context.Context, ids []string, to Status, reason string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNothingToUpdate
	}
	if s.sink != nil {
		if err := s.sink.UpdateStatus(ctx, ids, to); err != nil {
			return 0, fmt.Errorf("update status: %w", err)
		}
	}

	s.mu.Lock()
	changed := ApplyStatus(s.orders, ids, to)
	s.board = s.build(s.orders)
	b := s.board
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"status":  string(to),
		"ids":     len(ids),
		"changed": changed,
	}).Info(reason)
	s.publish(reason, b)
	return changed, nil
}

// Subscribe registers fn for GroupsChanged events and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(GroupsChanged)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish(reason string, b Board) {
	s.mu.RLock()
	fns := make([]func(GroupsChanged), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	ev := GroupsChanged{ID: uuid.New(), Reason: reason, Board: b, At: time.Now().UTC()}
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Store) build(orders []Order) Board {
	res := s.classifier.Classify(orders)
	created := make([]string, 0, len(orders))
	for _, o := range orders {
		created = append(created, o.CreatedAt)
	}
	span := dates.RangeOf(created)
	return Board{
		Result:        res,
		Locality:      s.classifier.Locality(),
		Origin:        s.origin,
		Pickup:        PlanPickupRoute(res.Sellers, s.origin),
		DeliveryStops: OrderDeliveryStops(append(append([]*CustomerGroup{}, res.LocalCustomers...), res.RemoteCustomers...), s.origin),
		Dates:         span,
		DateLabel:     span.Label(),
		OrderTotal:    len(orders),
		GeneratedAt:   time.Now().UTC(),
	}
}
