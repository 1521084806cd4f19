package finance

import (
	"context"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/docstore"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// FeeRepository registers and lists the fees of a store
type FeeRepository struct {
	tariffs  finance.Tariffs
	settings saga.Settings
	logger   *zap.Logger
}

// NewFeeRepository creates a new FeeRepository. Types missing from tariffs
// are charged finance.DefaultTariff.
func NewFeeRepository(tariffs finance.Tariffs, settings saga.Settings, logger *zap.Logger) *FeeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeRepository{tariffs: tariffs, settings: settings, logger: logger}
}

// GetAll lists the fees of the actor's store
func (r *FeeRepository) GetAll(ctx context.Context, ac app.Context, filter finance.FeeFilter) ([]finance.Fee, error) {
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	f := docstore.Filter{"storeId": ac.Actor.StoreID}
	if filter.Type != "" {
		f["type"] = filter.Type
	}
	if filter.Status != "" {
		f["status"] = filter.Status
	}

	fees := []finance.Fee{}
	if err := ac.Collection(docstore.Fees).Find(ctx, f, &fees); err != nil {
		return nil, shared.NewPersistenceError("list fees", err)
	}
	return fees, nil
}

// Register prices a new fee from its type and stores it
func (r *FeeRepository) Register(ctx context.Context, ac app.Context, req finance.RegisterFeeRequest) (*finance.Fee, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee", "register",
		telemetry.WithAttribute(telemetry.SpanAttrStoreID, ac.Actor.StoreID))
	defer span.End()

	if err := ac.Validate(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fee := finance.NewFeeDraft(ac.Actor, r.settings.Now)
	m := finance.NewFeeMutator(fee, r.tariffs)
	m.ApplyTypePolicy(req.Type)
	if err := m.SetType(req.Type); err != nil {
		return nil, err
	}
	if err := m.SetPayment(req.Payment); err != nil {
		return nil, err
	}

	fees := ac.Collection(docstore.Fees)
	err := r.settings.New("fee.register", r.logger, ac.Actor.StoreID).Add(saga.Step{
		Name:    "insert_fee",
		Forward: func(ctx context.Context) error { return fees.InsertOne(ctx, fee) },
		Inverse: func(ctx context.Context) error {
			_, err := fees.DeleteOne(ctx, docstore.Filter{"id": fee.ID})
			return err
		},
		CompensateOnFailure: true,
	}).Run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewPersistenceError("register fee", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrFeeID, fee.ID)
	r.logger.Info("fee registered",
		zap.String("fee_id", fee.ID),
		zap.String("store_id", ac.Actor.StoreID),
		zap.String("type", string(fee.Type)),
		zap.String("status", string(fee.Status)),
	)
	return fee, nil
}
