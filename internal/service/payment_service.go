package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/teranga-pos/payments/internal/cache"
	"github.com/teranga-pos/payments/internal/config"
	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/models"
	"github.com/teranga-pos/payments/internal/payment"
	"github.com/teranga-pos/payments/internal/payment/registry"
	"github.com/teranga-pos/payments/internal/queue"
	"github.com/teranga-pos/payments/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService drives the payment lifecycle: initiation behind the
// idempotency guard, refunds, status checks and the single-writer status
// transitions that webhooks and the poller both funnel through.
type PaymentService struct {
	db          *gorm.DB
	paymentRepo repository.PaymentRepository
	methodRepo  repository.PaymentMethodRepository
	drawerRepo  repository.CashDrawerRepository
	queueClient *queue.Client
	cfg         *config.PaymentConfig
}

// NewPaymentService creates the payment service.
func NewPaymentService(db *gorm.DB, paymentRepo repository.PaymentRepository, methodRepo repository.PaymentMethodRepository, drawerRepo repository.CashDrawerRepository, queueClient *queue.Client, cfg *config.PaymentConfig) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		methodRepo:  methodRepo,
		drawerRepo:  drawerRepo,
		queueClient: queueClient,
		cfg:         cfg,
	}
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

func (s *PaymentService) clientOptions() payment.Options {
	return payment.NormalizeOptions(payment.Options{
		Timeout:          time.Duration(s.cfg.ProviderTimeoutSeconds) * time.Second,
		WebhookTolerance: time.Duration(s.cfg.WebhookToleranceSeconds) * time.Second,
	})
}

func (s *PaymentService) idempotencyTTL() time.Duration {
	hours := s.cfg.IdempotencyTTLHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// clientFor builds a provider client from a tenant's stored method config.
func (s *PaymentService) clientFor(method *models.PaymentMethod) (payment.Client, error) {
	client, err := registry.Build(method.ProviderCode, map[string]interface{}(method.Config), s.clientOptions())
	if err != nil {
		paymentLogger(
			"tenant_id", method.TenantID,
			"provider_code", method.ProviderCode,
		).Errorw("payment_provider_client_build_failed", "error", err)
		return nil, ErrProviderConfigInvalid
	}
	return client, nil
}

// InitiatePaymentInput starts a payment attempt.
type InitiatePaymentInput struct {
	Context        context.Context
	TenantID       uint
	CashierID      uint
	OrderRef       string
	ProviderCode   string
	Amount         int64
	Currency       string
	PayerPhone     string
	Description    string
	IdempotencyKey string
	SuccessURL     string
	ErrorURL       string
}

// InitiatePaymentResult reports the payment and whether the request was a
// replay of an earlier one.
type InitiatePaymentResult struct {
	Payment     *models.Payment
	IsDuplicate bool
}

func (in *InitiatePaymentInput) normalize() {
	in.OrderRef = strings.TrimSpace(in.OrderRef)
	in.ProviderCode = strings.TrimSpace(strings.ToLower(in.ProviderCode))
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	in.PayerPhone = strings.TrimSpace(in.PayerPhone)
	if in.Context == nil {
		in.Context = context.Background()
	}
}

func (in *InitiatePaymentInput) validate() error {
	if in.TenantID == 0 || in.OrderRef == "" || in.IdempotencyKey == "" {
		return ErrPaymentInvalid
	}
	if in.Amount <= 0 {
		return ErrPaymentInvalid
	}
	if in.Currency == "" {
		return ErrPaymentInvalid
	}
	if in.ProviderCode != constants.ProviderCash && !registry.Supported(in.ProviderCode) {
		return ErrPaymentInvalid
	}
	return nil
}

// InitiatePayment creates a payment behind the idempotency guard. A replayed
// key returns the payment it minted in whatever state it is now, flagged as a
// duplicate; it never re-executes the provider call. The one case that cannot
// replay is a concurrent loser racing a winner that has not persisted its row
// yet: there is nothing to return, so it gets ErrIdempotencyInFlight (409)
// and the caller's retry dedupes normally.
func (s *PaymentService) InitiatePayment(input InitiatePaymentInput) (*InitiatePaymentResult, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}
	log := paymentLogger(
		"tenant_id", input.TenantID,
		"order_ref", input.OrderRef,
		"provider_code", input.ProviderCode,
		"idempotency_key", input.IdempotencyKey,
		"amount", input.Amount,
		"currency", input.Currency,
	)

	// Fast path: the cache resolves replays without touching the database.
	if existing, dup, err := s.resolveCachedDuplicate(input); err == nil && dup {
		log.Infow("payment_initiate_deduplicated", "payment_id", existing.ID)
		return &InitiatePaymentResult{Payment: existing, IsDuplicate: true}, nil
	}

	won, err := cache.ClaimIdempotencyKey(input.Context, cacheKeyFor(input), s.idempotencyTTL())
	if err != nil {
		log.Warnw("payment_idempotency_claim_error", "error", err)
		won = true // durable unique index still guards
	}
	if !won {
		existing, err := s.paymentRepo.GetByIdempotencyKey(input.TenantID, input.IdempotencyKey)
		if err != nil {
			return nil, ErrPaymentUpdateFailed
		}
		if existing != nil {
			log.Infow("payment_initiate_deduplicated", "payment_id", existing.ID)
			return &InitiatePaymentResult{Payment: existing, IsDuplicate: true}, nil
		}
		// claimed but not yet bound: the winner is mid-flight
		log.Infow("payment_initiate_in_flight")
		return nil, ErrIdempotencyInFlight
	}

	if input.ProviderCode == constants.ProviderCash {
		return s.initiateCashPayment(input, log)
	}
	return s.initiateProviderPayment(input, log)
}

func cacheKeyFor(input InitiatePaymentInput) string {
	// tenant-scope the cache key; the durable index is scoped the same way
	return "t:" + strconv.FormatUint(uint64(input.TenantID), 10) + ":" + input.IdempotencyKey
}

func (s *PaymentService) resolveCachedDuplicate(input InitiatePaymentInput) (*models.Payment, bool, error) {
	id, hit, err := cache.LookupIdempotencyKey(input.Context, cacheKeyFor(input))
	if err != nil || !hit || id == 0 {
		return nil, false, err
	}
	existing, err := s.paymentRepo.GetByID(input.TenantID, id)
	if err != nil || existing == nil {
		return nil, false, err
	}
	return existing, true, nil
}

// initiateCashPayment settles immediately against the cashier's open drawer.
func (s *PaymentService) initiateCashPayment(input InitiatePaymentInput, log *zap.SugaredLogger) (*InitiatePaymentResult, error) {
	session, err := s.drawerRepo.GetOpenByCashier(input.TenantID, input.CashierID)
	if err != nil {
		releaseClaim(input)
		return nil, ErrPaymentUpdateFailed
	}
	if session == nil {
		releaseClaim(input)
		log.Warnw("payment_cash_drawer_not_open", "cashier_id", input.CashierID)
		return nil, ErrDrawerNotOpen
	}

	now := time.Now().UTC()
	record := &models.Payment{
		TenantID:        input.TenantID,
		OrderRef:        input.OrderRef,
		IdempotencyKey:  input.IdempotencyKey,
		ProviderCode:    constants.ProviderCash,
		Amount:          input.Amount,
		Currency:        input.Currency,
		Status:          constants.PaymentStatusSuccess,
		InteractionMode: constants.PaymentInteractionCash,
		InitiatedAt:     now,
		CompletedAt:     &now,
	}
	if err := s.paymentRepo.Create(record); err != nil {
		return s.recoverFromCreateConflict(input, err, log)
	}
	bindClaim(input, record.ID, s.idempotencyTTL())
	log.Infow("payment_cash_recorded", "payment_id", record.ID, "drawer_session_id", session.ID)
	return &InitiatePaymentResult{Payment: record}, nil
}

// initiateProviderPayment records the attempt durably, then makes the
// provider call. The row exists before the call so a crash mid-call leaves an
// auditable pending payment instead of silence.
func (s *PaymentService) initiateProviderPayment(input InitiatePaymentInput, log *zap.SugaredLogger) (*InitiatePaymentResult, error) {
	method, err := s.activeMethod(input.Context, input.TenantID, input.ProviderCode)
	if err != nil {
		releaseClaim(input)
		return nil, ErrPaymentUpdateFailed
	}
	if method == nil {
		releaseClaim(input)
		log.Warnw("payment_provider_not_configured")
		return nil, ErrProviderNotConfigured
	}
	client, err := s.clientFor(method)
	if err != nil {
		releaseClaim(input)
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.Payment{
		TenantID:       input.TenantID,
		OrderRef:       input.OrderRef,
		IdempotencyKey: input.IdempotencyKey,
		ProviderCode:   input.ProviderCode,
		Amount:         input.Amount,
		Currency:       input.Currency,
		PayerPhone:     input.PayerPhone,
		Status:         constants.PaymentStatusPending,
		InitiatedAt:    now,
	}
	if err := s.paymentRepo.Create(record); err != nil {
		return s.recoverFromCreateConflict(input, err, log)
	}
	bindClaim(input, record.ID, s.idempotencyTTL())
	log = log.With("payment_id", record.ID)

	result := client.Initiate(input.Context, payment.InitiateRequest{
		Amount:         input.Amount,
		Currency:       input.Currency,
		OrderRef:       input.OrderRef,
		Description:    input.Description,
		PayerPhone:     input.PayerPhone,
		IdempotencyKey: input.IdempotencyKey,
		CallbackURL:    s.callbackURL(input.TenantID, input.ProviderCode),
		SuccessURL:     input.SuccessURL,
		ErrorURL:       input.ErrorURL,
	})

	record.ProviderRef = result.ProviderRef
	record.RedirectURL = result.RedirectURL
	record.InteractionMode = result.InteractionMode
	record.InitiatePayload = models.JSON(result.Raw)

	switch result.Status {
	case payment.StatusFailed:
		applyStatus(record, constants.PaymentStatusFailed, time.Now().UTC())
		record.ErrorCode = result.ErrorCode
		record.ErrorMessage = result.ErrorMessage
		log.Warnw("payment_initiate_declined",
			"error_code", result.ErrorCode,
			"error_message", result.ErrorMessage,
		)
	case payment.StatusSuccess:
		// no provider settles synchronously today, but the contract allows it
		applyStatus(record, constants.PaymentStatusSuccess, time.Now().UTC())
		log.Infow("payment_initiate_settled")
	default:
		applyStatus(record, constants.PaymentStatusProcessing, time.Now().UTC())
		log.Infow("payment_initiate_accepted", "provider_ref", record.ProviderRef)
	}

	if err := s.paymentRepo.Update(record); err != nil {
		log.Errorw("payment_initiate_persist_failed", "error", err)
		return nil, ErrPaymentUpdateFailed
	}

	if !record.IsTerminal() {
		s.schedulePoll(record.ID, 1, log)
	}
	return &InitiatePaymentResult{Payment: record}, nil
}

// recoverFromCreateConflict resolves a failed insert: a unique-index hit on
// the idempotency key means a concurrent duplicate won, anything else is a
// real failure.
func (s *PaymentService) recoverFromCreateConflict(input InitiatePaymentInput, createErr error, log *zap.SugaredLogger) (*InitiatePaymentResult, error) {
	existing, err := s.paymentRepo.GetByIdempotencyKey(input.TenantID, input.IdempotencyKey)
	if err == nil && existing != nil {
		log.Infow("payment_initiate_deduplicated", "payment_id", existing.ID)
		return &InitiatePaymentResult{Payment: existing, IsDuplicate: true}, nil
	}
	releaseClaim(input)
	log.Errorw("payment_create_failed", "error", createErr)
	return nil, ErrPaymentUpdateFailed
}

func releaseClaim(input InitiatePaymentInput) {
	_ = cache.ReleaseIdempotencyKey(input.Context, cacheKeyFor(input))
}

func bindClaim(input InitiatePaymentInput, paymentID uint, ttl time.Duration) {
	_ = cache.BindIdempotencyKey(input.Context, cacheKeyFor(input), paymentID, ttl)
}

func (s *PaymentService) callbackURL(tenantID uint, providerCode string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.CallbackBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/callbacks/" + strconv.FormatUint(uint64(tenantID), 10) + "/" + providerCode
}

func (s *PaymentService) schedulePoll(paymentID uint, attempt int, log *zap.SugaredLogger) {
	delay := time.Duration(s.cfg.PollInitialDelaySeconds) * time.Second
	if attempt > 1 {
		delay = time.Duration(s.cfg.PollIntervalSeconds) * time.Second
	}
	if err := s.queueClient.EnqueuePaymentStatusPoll(queue.PaymentStatusPollPayload{
		PaymentID: paymentID,
		Attempt:   attempt,
	}, delay); err != nil {
		log.Warnw("payment_poll_enqueue_failed", "attempt", attempt, "error", err)
	}
}

// GetPayment fetches a tenant's payment.
func (s *PaymentService) GetPayment(tenantID, id uint) (*models.Payment, error) {
	record, err := s.paymentRepo.GetByID(tenantID, id)
	if err != nil {
		return nil, ErrPaymentUpdateFailed
	}
	if record == nil {
		return nil, ErrPaymentNotFound
	}
	return record, nil
}

// ListPayments returns a filtered payment page.
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.paymentRepo.List(filter)
}

// CheckPayment queries the provider for a payment's current status and
// applies any resulting transition. It is the ad-hoc form of the poller.
func (s *PaymentService) CheckPayment(ctx context.Context, tenantID, id uint) (*models.Payment, error) {
	record, err := s.GetPayment(tenantID, id)
	if err != nil {
		return nil, err
	}
	if record.IsTerminal() || record.ProviderCode == constants.ProviderCash || record.ProviderRef == "" {
		return record, nil
	}

	method, err := s.activeMethod(ctx, record.TenantID, record.ProviderCode)
	if err != nil || method == nil {
		return nil, ErrProviderNotConfigured
	}
	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	result := client.CheckStatus(ctx, record.ProviderRef)
	if result.ErrorCode == payment.ErrorCodeNetwork {
		// unreachable provider leaves the stored status untouched
		paymentLogger("payment_id", record.ID).Warnw("payment_check_provider_unreachable",
			"error_message", result.ErrorMessage,
		)
		return record, nil
	}
	return s.applyProviderStatus(record.ID, result.Status, models.JSON(result.Raw))
}

// applyProviderStatus funnels a provider-observed status through the
// transition table under a row lock. Backward or sideways transitions are
// dropped, and re-applying the current status is a no-op.
func (s *PaymentService) applyProviderStatus(paymentID uint, providerStatus string, raw models.JSON) (*models.Payment, error) {
	target := normalizeProviderStatus(providerStatus)
	var updated *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		record, err := repo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrPaymentNotFound
		}
		updated = record
		if record.Status == target {
			return nil
		}
		if !CanTransition(record.Status, target) {
			paymentLogger("payment_id", record.ID).Infow("payment_transition_dropped",
				"current_status", record.Status,
				"target_status", target,
			)
			return nil
		}
		applyStatus(record, target, time.Now().UTC())
		if len(raw) > 0 {
			record.CallbackPayload = raw
		}
		return repo.Update(record)
	})
	if err != nil {
		if err == ErrPaymentNotFound {
			return nil, err
		}
		return nil, ErrPaymentUpdateFailed
	}
	return updated, nil
}

// normalizeProviderStatus maps the provider contract's vocabulary onto stored
// statuses; anything unrecognized holds the payment in processing.
func normalizeProviderStatus(status string) string {
	switch status {
	case payment.StatusSuccess:
		return constants.PaymentStatusSuccess
	case payment.StatusFailed:
		return constants.PaymentStatusFailed
	case payment.StatusExpired:
		return constants.PaymentStatusExpired
	case payment.StatusPending:
		return constants.PaymentStatusPending
	default:
		return constants.PaymentStatusProcessing
	}
}
