package property

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	apppartner "github.com/erp/backoffice/internal/application/partner"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/property"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// bookingKey is the guard key serializing bookings of one property
func bookingKey(propertyID string) string {
	return "booking:" + propertyID
}

// BookingRepository books properties of the actor's store. Bookings of
// one property are serialized on the stock guard so two overlapping
// stays cannot both be accepted.
type BookingRepository struct {
	properties *PropertyRepository
	customers  *apppartner.CustomerRepository
	guard      shared.StockGuard
	settings   saga.Settings
	logger     *zap.Logger
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(
	properties *PropertyRepository,
	customers *apppartner.CustomerRepository,
	guard shared.StockGuard,
	settings saga.Settings,
	logger *zap.Logger,
) *BookingRepository {
	if guard == nil {
		guard = shared.NoopStockGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingRepository{
		properties: properties,
		customers:  customers,
		guard:      guard,
		settings:   settings,
		logger:     logger,
	}
}

// GetAll lists the bookings of the actor's store, optionally of one property
func (r *BookingRepository) GetAll(ctx context.Context, ac app.Context, filter property.BookingFilter) ([]property.Booking, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	f := docstore.Filter{"owner": ac.Actor.StoreID}
	if filter.Property != "" {
		f["property"] = filter.Property
	}

	bookings := []property.Booking{}
	if err := ac.Collection(docstore.Bookings).Find(ctx, f, &bookings); err != nil {
		return nil, shared.NewPersistenceError("list bookings", err)
	}
	return bookings, nil
}

// Register books a property of the actor's store for a customer. The
// declared total must equal the property's rate times the billed units.
func (r *BookingRepository) Register(ctx context.Context, ac app.Context, req property.RegisterBookingRequest) (*property.Booking, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID),
		telemetry.WithAttribute(telemetry.SpanAttrPropertyID, req.Property),
	)
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stay, err := property.NewPeriod(req.CheckIn, req.CheckOut, r.settings.Now())
	if err != nil {
		return nil, err
	}
	p, err := r.properties.Get(ctx, ac, req.Property)
	if err != nil {
		return nil, err
	}
	if _, err := r.customers.Get(ctx, ac, req.Guest); err != nil {
		return nil, err
	}
	total, err := p.Quote(req.Type, stay)
	if err != nil {
		return nil, err
	}
	if !total.MatchesDeclared(req.TotalPrice) {
		return nil, shared.NewValidationError(shared.ErrTotalMismatch.Code, "totalPrice", "Total price is not correct.")
	}

	release, err := r.guard.Acquire(ctx, bookingKey(p.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := r.GetAll(ctx, ac, property.BookingFilter{Property: p.ID})
	if err != nil {
		return nil, err
	}
	for i := range existing {
		other, err := existing[i].Period()
		if err != nil {
			r.logger.Warn("booking with unreadable dates",
				zap.String("booking_id", existing[i].ID),
				zap.Error(err),
			)
			continue
		}
		if stay.Overlaps(other) {
			return nil, property.ErrAlreadyBooked
		}
	}

	booking := property.NewBooking(ac.Actor, r.settings.Now, p, req, stay, total)
	bookings := ac.Collection(docstore.Bookings)
	err = r.settings.New("booking.register", r.logger, ac.Actor.StoreID).Add(saga.Step{
		Name:    "insert_booking",
		Forward: func(ctx context.Context) error { return bookings.InsertOne(ctx, booking) },
		Inverse: func(ctx context.Context) error {
			_, err := bookings.DeleteOne(ctx, docstore.Filter{"id": booking.ID})
			return err
		},
		CompensateOnFailure: true,
	}).Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register booking", err)
	}

	r.logger.Info("booking registered",
		zap.String("booking_id", booking.ID),
		zap.String("property_id", p.ID),
		zap.String("store_id", ac.Actor.StoreID),
		zap.String("total", booking.TotalPrice.StringFixed(2)),
	)
	return booking, nil
}
