package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/grantpay/internal/config"
	"github.com/wekeepgrowing/grantpay/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/grantpay/internal/domain/errors"
	"github.com/wekeepgrowing/grantpay/internal/domain/model"
	"github.com/wekeepgrowing/grantpay/internal/domain/provider"
	"github.com/wekeepgrowing/grantpay/internal/domain/repository"
	"github.com/wekeepgrowing/grantpay/internal/usecase"
)

// testNow is a Wednesday.
var testNow = time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testLogger() *zap.Logger { return zap.NewNop() }

// memoryActivity is an in-memory ActivityLogRepository.
type memoryActivity struct {
	mu      sync.Mutex
	entries []*model.ActivityLogEntry
}

func (m *memoryActivity) Append(_ context.Context, entry *model.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryActivity) ListByPayment(_ context.Context, paymentID string) ([]*model.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ActivityLogEntry
	for _, e := range m.entries {
		if e.PaymentID == paymentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryActivity) activities(paymentID string) []string {
	entries, _ := m.ListByPayment(context.Background(), paymentID)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Activity)
	}
	return names
}

// memoryPayments is an in-memory PaymentRepository. Stored payments are
// copied on every read and write.
type memoryPayments struct {
	mu            sync.Mutex
	payments      map[string]*model.Payment
	activity      *memoryActivity
	now           func() time.Time
	historyErr    error
	transitionErr error
}

func newMemoryPayments(activity *memoryActivity) *memoryPayments {
	return &memoryPayments{
		payments: make(map[string]*model.Payment),
		activity: activity,
		now:      fixedClock,
	}
}

func (m *memoryPayments) put(p *model.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	cp := *p
	m.payments[p.ID] = &cp
}

func (m *memoryPayments) get(id string) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *memoryPayments) all() []*model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memoryPayments) Create(ctx context.Context, payment *model.Payment, details map[string]interface{}) error {
	now := m.now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	m.put(payment)
	return m.activity.Append(ctx, &model.ActivityLogEntry{
		PaymentID: payment.ID,
		Activity:  model.ActivityCreated,
		Details:   details,
	})
}

func (m *memoryPayments) GetByID(_ context.Context, id string) (*model.Payment, error) {
	return m.get(id), nil
}

func (m *memoryPayments) GetByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	for _, p := range m.all() {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memoryPayments) Transition(ctx context.Context, req repository.TransitionRequest) (*model.Payment, error) {
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}

	m.mu.Lock()
	stored, ok := m.payments[req.PaymentID]
	if !ok {
		m.mu.Unlock()
		return nil, domainErrors.ErrPaymentNotFound
	}
	from := stored.Status
	allowed := false
	for _, s := range req.From {
		if s == from {
			allowed = true
		}
	}
	if !allowed || !from.CanTransitionTo(req.To) {
		m.mu.Unlock()
		return nil, &domainErrors.InvalidTransitionError{PaymentID: req.PaymentID, From: string(from), To: string(req.To)}
	}
	updated := *stored
	if req.Mutate != nil {
		req.Mutate(&updated)
	}
	updated.Status = req.To
	updated.UpdatedAt = m.now()
	m.payments[req.PaymentID] = &updated
	cp := updated
	m.mu.Unlock()

	details := map[string]interface{}{"from_status": string(from), "to_status": string(req.To)}
	for k, v := range req.Details {
		details[k] = v
	}
	if err := m.activity.Append(ctx, &model.ActivityLogEntry{PaymentID: req.PaymentID, Activity: req.Activity, Details: details}); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (m *memoryPayments) CountByGrantAmountStatusSince(_ context.Context, grantID string, amount decimal.Decimal, statuses []entity.PaymentStatus, since time.Time, excludeID string) (int64, error) {
	if m.historyErr != nil {
		return 0, m.historyErr
	}
	var n int64
	for _, p := range m.all() {
		if p.GrantID == grantID && p.ID != excludeID && p.Amount.Equal(amount) && !p.CreatedAt.Before(since) && hasStatus(p.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (m *memoryPayments) CompletedAmountsSince(_ context.Context, grantID string, since time.Time) ([]decimal.Decimal, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	var out []decimal.Decimal
	for _, p := range m.all() {
		if p.GrantID == grantID && p.Status == entity.PaymentStatusCompleted && !p.CreatedAt.Before(since) {
			out = append(out, p.Amount)
		}
	}
	return out, nil
}

func (m *memoryPayments) LatestCompleted(_ context.Context, grantID string) (*model.Payment, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	var latest *model.Payment
	for _, p := range m.all() {
		if p.GrantID == grantID && p.Status == entity.PaymentStatusCompleted {
			latest = p
		}
	}
	return latest, nil
}

func (m *memoryPayments) CountByGrantSince(_ context.Context, grantID string, since time.Time) (int64, error) {
	if m.historyErr != nil {
		return 0, m.historyErr
	}
	var n int64
	for _, p := range m.all() {
		if p.GrantID == grantID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryPayments) ListByCitizen(_ context.Context, citizenID string, limit, offset int) ([]*model.Payment, int64, error) {
	var matched []*model.Payment
	all := m.all()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].CitizenID == citizenID {
			matched = append(matched, all[i])
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []*model.Payment{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *memoryPayments) ListForReconciliation(_ context.Context, from, to time.Time, method *entity.PaymentMethod) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.all() {
		if p.CreatedAt.Before(from) || !p.CreatedAt.Before(to) {
			continue
		}
		if method != nil && p.Method != *method {
			continue
		}
		if hasStatus(p.Status, []entity.PaymentStatus{entity.PaymentStatusSubmitted, entity.PaymentStatusCompleted}) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryPayments) ListStale(_ context.Context, statuses []entity.PaymentStatus, olderThan time.Time, limit int) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.all() {
		if hasStatus(p.Status, statuses) && p.UpdatedAt.Before(olderThan) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func hasStatus(s entity.PaymentStatus, statuses []entity.PaymentStatus) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// memoryBatchRuns is an in-memory BatchRunRepository that records every
// progress update.
type memoryBatchRuns struct {
	mu          sync.Mutex
	runs        map[string]*model.BatchRun
	progress    []int
	progressErr error
	failAfter   int
}

func newMemoryBatchRuns() *memoryBatchRuns {
	return &memoryBatchRuns{runs: make(map[string]*model.BatchRun)}
}

func (m *memoryBatchRuns) Create(_ context.Context, run *model.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *memoryBatchRuns) GetByID(_ context.Context, id string) (*model.BatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (m *memoryBatchRuns) UpdateProgress(_ context.Context, id string, processed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progressErr != nil && len(m.progress) >= m.failAfter {
		return m.progressErr
	}
	run, ok := m.runs[id]
	if !ok || run.Status != entity.BatchStatusInProgress {
		return domainErrors.ErrBatchNotFound
	}
	run.Processed = processed
	m.progress = append(m.progress, processed)
	return nil
}

func (m *memoryBatchRuns) Finalize(_ context.Context, id string, status entity.BatchStatus, success, failure int, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domainErrors.ErrBatchNotFound
	}
	run.Status = status
	run.SuccessCount = success
	run.FailureCount = failure
	run.Error = errMsg
	return nil
}

// fakeRail is a scripted settlement rail that records dispatched payment ids.
type fakeRail struct {
	method   entity.PaymentMethod
	mu       sync.Mutex
	calls    []string
	dispatch func(p *model.Payment) (*provider.DispatchResult, error)
	query    func(p *model.Payment, reference string) (*provider.StatusResult, error)
}

func newFakeRail(method entity.PaymentMethod) *fakeRail {
	return &fakeRail{
		method: method,
		dispatch: func(p *model.Payment) (*provider.DispatchResult, error) {
			return &provider.DispatchResult{
				TransactionID:       "TX-" + p.ID,
				ProviderReference:   "REF-" + p.ID,
				Status:              provider.StatusAccepted,
				EstimatedSettlement: provider.NextBusinessDay(testNow).Format(provider.SettlementDateLayout),
			}, nil
		},
	}
}

func (r *fakeRail) Method() entity.PaymentMethod { return r.method }

func (r *fakeRail) Dispatch(_ context.Context, p *model.Payment) (*provider.DispatchResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, p.ID)
	r.mu.Unlock()
	return r.dispatch(p)
}

func (r *fakeRail) QueryStatus(_ context.Context, p *model.Payment, reference string) (*provider.StatusResult, error) {
	return r.query(p, reference)
}

func (r *fakeRail) dispatchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeRegistry map[entity.PaymentMethod]*fakeRail

func (f fakeRegistry) Dispatcher(method entity.PaymentMethod) (provider.Dispatcher, error) {
	rail, ok := f[method]
	if !ok {
		return nil, &domainErrors.UnsupportedMethodError{Method: string(method), Operation: "dispatch"}
	}
	return rail, nil
}

func (f fakeRegistry) Verifier(method entity.PaymentMethod) (provider.Verifier, error) {
	rail, ok := f[method]
	if !ok || rail.query == nil {
		return nil, &domainErrors.UnsupportedMethodError{Method: string(method), Operation: "verification"}
	}
	return rail, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []usecase.StatusEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event, ok := message.(usecase.StatusEvent); ok {
		p.events = append(p.events, event)
	}
	return p.err
}

func (p *recordingPublisher) statuses(paymentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		if e.PaymentID == paymentID {
			out = append(out, e.Status)
		}
	}
	return out
}

// paymentFixture wires a PaymentService over in-memory fakes.
type paymentFixture struct {
	payments  *memoryPayments
	activity  *memoryActivity
	eft       *fakeRail
	card      *fakeRail
	cash      *fakeRail
	publisher *recordingPublisher
	engine    *usecase.FraudEngine
	service   *usecase.PaymentService
}

func newPaymentFixture() *paymentFixture {
	logger := zap.NewNop()
	activity := &memoryActivity{}
	payments := newMemoryPayments(activity)

	engine, err := usecase.NewFraudEngine(config.FraudConfig{
		HighThreshold:   50,
		MediumThreshold: 25,
		Rules:           config.DefaultFraudRules(),
	}, payments, logger)
	if err != nil {
		panic(err)
	}
	engine.SetClock(fixedClock)

	f := &paymentFixture{
		payments:  payments,
		activity:  activity,
		eft:       newFakeRail(entity.PaymentMethodEFT),
		card:      newFakeRail(entity.PaymentMethodCard),
		cash:      newFakeRail(entity.PaymentMethodCash),
		publisher: &recordingPublisher{},
		engine:    engine,
	}
	registry := fakeRegistry{
		entity.PaymentMethodEFT:  f.eft,
		entity.PaymentMethodCard: f.card,
		entity.PaymentMethodCash: f.cash,
	}
	validator := usecase.NewBankDetailsValidator(testBanks(), logger)
	notifier := usecase.NewStatusNotifier(f.publisher, "payments.status", logger)

	f.service = usecase.NewPaymentService(payments, activity, engine, validator, registry, notifier, "ZAR", logger,
		usecase.WithServiceClock(fixedClock),
		usecase.WithPendingRecoveryAfter(time.Hour),
	)
	return f
}

func testBanks() []config.BankConfig {
	return []config.BankConfig{
		{Code: "FNB", Name: "First National Bank", UniversalBranch: "250655", AccountLengths: []int{11}},
		{Code: "CAP", Name: "Capitec", UniversalBranch: "470010", AccountLengths: []int{10}},
	}
}

func validBankDetails() entity.BankDetails {
	return entity.BankDetails{
		AccountNumber: "62001234567",
		BranchCode:    "250655",
		BankCode:      "FNB",
		AccountType:   "savings",
	}
}

func eftRequest(grantID string, amount int64) usecase.SubmitPaymentRequest {
	return usecase.SubmitPaymentRequest{
		GrantID:   grantID,
		GrantType: "OLD_AGE",
		Amount:    decimal.NewFromInt(amount),
		Method:    entity.PaymentMethodEFT,
		Recipient: entity.Recipient{
			CitizenID:   "8001015009087",
			Name:        "Thandi Mokoena",
			Phone:       "+27821234567",
			BankDetails: validBankDetails(),
		},
	}
}

var errStoreDown = errors.New("store unavailable")
