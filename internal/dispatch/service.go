package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

var (
	ErrInvalidTransition = errors.New("invalid dispatch transition")
	ErrNotDeliveryOrder  = errors.New("order is not a delivery order")
	ErrOrderNotApproved  = errors.New("order is not approved")
	ErrBadDecision       = errors.New("decision must be accept, reject or deliver")
)

// PlayerDirectory resolves the display username shown to the motoboy.
type PlayerDirectory interface {
	Username(ctx context.Context, id string) (string, error)
}

// Events receives lifecycle notifications. May be nil.
type Events interface {
	DispatchOpened(ctx context.Context, rec *Record)
	DispatchChanged(ctx context.Context, rec *Record)
}

type Service struct {
	repo    Repository
	players PlayerDirectory
	events  Events

	Now func() time.Time
}

func NewService(repo Repository, players PlayerDirectory, events Events) *Service {
	return &Service{repo: repo, players: players, events: events, Now: time.Now}
}

// OpenForOrder derives the courier record from a freshly approved delivery
// order. At most one record per order ever exists; a replay returns the
// existing record with created=false.
func (s *Service) OpenForOrder(ctx context.Context, o *order.Order) (rec *Record, created bool, err error) {
	if o.DeliveryType != order.DeliveryDelivery {
		return nil, false, ErrNotDeliveryOrder
	}
	if o.Status != order.StatusApproved {
		return nil, false, ErrOrderNotApproved
	}

	username, err := s.players.Username(ctx, o.BuyerID)
	if err != nil {
		return nil, false, err
	}
	now := s.Now().UTC()
	rec = &Record{
		ID:                 uuid.NewString(),
		OrderID:            o.ID,
		BuyerID:            o.BuyerID,
		CustomerUsername:   username,
		Items:              o.Items,
		Total:              o.Total,
		ManagerStatus:      ManagerApproved,
		MotoboyStatus:      MotoboyWaiting,
		ManagerProcessedAt: &now,
		CreatedAt:          now,
	}
	created, err = s.repo.Create(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := s.repo.GetByOrderID(ctx, o.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if s.events != nil {
		s.events.DispatchOpened(ctx, rec)
	}
	return rec, true, nil
}

// CourierDecide applies a motoboy action. Transitions are accepted only from
// the state they are defined on; a stale action returns ErrInvalidTransition
// and the caller re-reads current state.
func (s *Service) CourierDecide(ctx context.Context, dispatchID, decision string) (*Record, error) {
	now := s.Now().UTC()

	var err error
	switch decision {
	case DecisionAccept:
		err = s.repo.Accept(ctx, dispatchID, now)
	case DecisionReject:
		err = s.repo.Reject(ctx, dispatchID, now)
	case DecisionDeliver:
		err = s.repo.Deliver(ctx, dispatchID, now)
	default:
		return nil, ErrBadDecision
	}

	if errors.Is(err, ErrStaleStatus) {
		if _, gerr := s.repo.GetByID(ctx, dispatchID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByID(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.DispatchChanged(ctx, rec)
	}
	return rec, nil
}

// ExpireDueRecords times out every record stuck in waiting past ttl. Losing
// an individual race to a courier accept is a no-op.
func (s *Service) ExpireDueRecords(ctx context.Context, now time.Time, ttl time.Duration) (int, error) {
	waiting, err := s.repo.ListWaiting(ctx)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range waiting {
		rec := &waiting[i]
		if !ExpireDue(rec, now, ttl) {
			continue
		}
		err := s.repo.Expire(ctx, rec.ID)
		if errors.Is(err, ErrStaleStatus) {
			continue
		}
		if err != nil {
			log.Printf("[dispatch] expire %s failed: %v", rec.ID, err)
			continue
		}
		expired++
		if s.events != nil {
			rec.ManagerStatus = ManagerExpired
			rec.MotoboyStatus = MotoboyExpired
			s.events.DispatchChanged(ctx, rec)
		}
	}
	return expired, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeliveredUncredited(ctx context.Context) ([]Record, error) {
	return s.repo.ListDeliveredUncredited(ctx)
}
