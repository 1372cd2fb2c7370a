package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/entity"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/pkg/logger"
	"marketplace-be/internal/repository/unitofwork"
	"marketplace-be/pkg/payment"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IPaymentService interface {
	GetPlans(ctx context.Context) ([]*dto.PlanResponse, error)
	Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	RenewCheckout(ctx context.Context, userId, subscriptionId uuid.UUID, req *dto.RenewCheckoutRequest) (*dto.CheckoutResponse, error)
	// HandleWebhook verifies and applies a gateway notification. A nil error
	// means the provider may consider it delivered.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type PaymentConfig struct {
	Currency    string
	CallbackURL string
	Channels    []string
	DedupTTL    time.Duration
}

type paymentService struct {
	uowFactory    unitofwork.RepositoryFactory
	gateway       payment.Gateway
	subscriptions ISubscriptionService
	cfg           PaymentConfig
	seen          *cache.Cache
	metrics       metrics.Recorder
	logger        logger.ILogger
}

func NewPaymentService(uowFactory unitofwork.RepositoryFactory, gateway payment.Gateway, subscriptions ISubscriptionService, cfg PaymentConfig, rec metrics.Recorder, log logger.ILogger) IPaymentService {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &paymentService{
		uowFactory:    uowFactory,
		gateway:       gateway,
		subscriptions: subscriptions,
		cfg:           cfg,
		seen:          cache.New(cfg.DedupTTL, 10*time.Minute),
		metrics:       rec,
		logger:        log,
	}
}

func (s *paymentService) GetPlans(ctx context.Context) ([]*dto.PlanResponse, error) {
	plans, err := s.uowFactory.NewUnitOfWork(ctx).PlanRepository().FindAllActive(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.PlanResponse, len(plans))
	for i, p := range plans {
		res[i] = &dto.PlanResponse{
			Id:       p.Id,
			Slug:     p.Slug,
			Name:     p.Name,
			Price:    p.Price,
			Currency: p.Currency,
			Features: p.Features,
		}
	}
	return res, nil
}

func newReference(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (s *paymentService) Checkout(ctx context.Context, userId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	plan, err := uow.PlanRepository().FindBySlug(ctx, req.PlanSlug)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	tx := &entity.PaymentTransaction{
		UserId:      userId,
		PlanSlug:    plan.Slug,
		Reference:   newReference("sub"),
		Provider:    s.gateway.Name(),
		AmountMinor: payment.ConvertToKobo(plan.Price),
		Currency:    s.currency(plan.Currency),
		Status:      entity.PaymentStatusPending,
	}
	return s.initialize(ctx, user, tx, req.CallbackURL)
}

func (s *paymentService) RenewCheckout(ctx context.Context, userId, subscriptionId uuid.UUID, req *dto.RenewCheckoutRequest) (*dto.CheckoutResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sub, err := uow.SubscriptionRepository().FindByID(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.UserId != userId {
		return nil, ErrForbidden
	}
	if !entity.CanTransition(sub.Status, entity.SubscriptionStatusActive) {
		return nil, fmt.Errorf("%w: %s subscription cannot be renewed", ErrInvalidTransition, sub.Status)
	}

	user, err := uow.UserRepository().FindByID(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	tx := &entity.PaymentTransaction{
		UserId:         userId,
		SubscriptionId: &sub.Id,
		Reference:      newReference("renew"),
		Provider:       s.gateway.Name(),
		AmountMinor:    payment.ConvertToKobo(sub.Price),
		Currency:       s.cfg.Currency,
		Status:         entity.PaymentStatusPending,
	}

	callback := ""
	if req != nil {
		callback = req.CallbackURL
	}
	return s.initialize(ctx, user, tx, callback)
}

func (s *paymentService) currency(planCurrency string) string {
	if planCurrency != "" {
		return planCurrency
	}
	return s.cfg.Currency
}

// initialize persists the pending transaction before calling the gateway so a
// webhook can never arrive for an unknown reference.
func (s *paymentService) initialize(ctx context.Context, user *entity.User, tx *entity.PaymentTransaction, callbackURL string) (*dto.CheckoutResponse, error) {
	if callbackURL == "" {
		callbackURL = s.cfg.CallbackURL
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.PaymentRepository().Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save payment transaction: %w", err)
	}

	metadata := map[string]interface{}{
		"user_id":        user.Id.String(),
		"transaction_id": tx.Id.String(),
	}
	if tx.PlanSlug != "" {
		metadata["plan_slug"] = tx.PlanSlug
	}
	if tx.SubscriptionId != nil {
		metadata["subscription_id"] = tx.SubscriptionId.String()
	}

	res := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       user.Email,
		AmountMinor: tx.AmountMinor,
		Reference:   tx.Reference,
		Currency:    tx.Currency,
		CallbackURL: callbackURL,
		Metadata:    metadata,
		Channels:    s.cfg.Channels,
	})
	if !res.OK() {
		s.logger.Error("PAYMENT", "Gateway initialize failed", map[string]interface{}{
			"reference": tx.Reference,
			"provider":  tx.Provider,
			"message":   res.Message,
		})
		if _, err := uow.PaymentRepository().UpdateStatus(ctx, tx.Reference, entity.PaymentStatusFailed, map[string]interface{}{"message": res.Message}); err != nil {
			s.logger.Warn("PAYMENT", "Failed to mark transaction failed", map[string]interface{}{"reference": tx.Reference, "error": err.Error()})
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, res.Message)
	}

	s.logger.Info("PAYMENT", "Checkout initialized", map[string]interface{}{
		"reference":    tx.Reference,
		"user_id":      user.Id,
		"amount_minor": tx.AmountMinor,
	})

	return &dto.CheckoutResponse{
		Reference:        tx.Reference,
		AuthorizationURL: res.String("authorization_url"),
		AccessCode:       res.String("access_code"),
		Provider:         tx.Provider,
		AmountMinor:      tx.AmountMinor,
		Currency:         tx.Currency,
		SubscriptionId:   tx.SubscriptionId,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		s.recordWebhook("unknown", "invalid_signature")
		s.logger.Warn("WEBHOOK", "Rejected webhook with invalid signature", map[string]interface{}{"provider": s.gateway.Name()})
		return ErrInvalidSignature
	}

	evt, err := s.gateway.ParseWebhook(rawBody)
	if err != nil {
		s.recordWebhook("unknown", "malformed")
		return fmt.Errorf("parse webhook: %w", err)
	}
	if evt.Reference == "" {
		s.recordWebhook(evt.Event, "ignored")
		return nil
	}

	dedupKey := evt.Event + ":" + evt.Reference
	if _, dup := s.seen.Get(dedupKey); dup {
		s.recordWebhook(evt.Event, "duplicate")
		s.logger.Info("WEBHOOK", "Duplicate webhook acknowledged", map[string]interface{}{"event": evt.Event, "reference": evt.Reference})
		return nil
	}

	var settled bool
	switch evt.Event {
	case payment.EventChargeSuccess:
		settled, err = s.handleChargeSuccess(ctx, evt)
	case payment.EventChargeFailed, payment.EventInvoicePaymentFailed:
		settled, err = s.handleChargeFailed(ctx, evt)
	default:
		s.recordWebhook(evt.Event, "ignored")
		s.logger.Info("WEBHOOK", "Ignoring webhook event", map[string]interface{}{"event": evt.Event, "reference": evt.Reference})
		return nil
	}
	if err != nil {
		s.recordWebhook(evt.Event, "error")
		return err
	}
	if !settled {
		s.recordWebhook(evt.Event, "ignored")
		return nil
	}

	s.seen.SetDefault(dedupKey, struct{}{})
	s.recordWebhook(evt.Event, "processed")
	return nil
}

// handleChargeSuccess reports settled=true once the transaction has left
// pending, whether by this delivery or an earlier one.
func (s *paymentService) handleChargeSuccess(ctx context.Context, evt payment.WebhookEvent) (bool, error) {
	// the webhook body is not trusted for the outcome; ask the provider
	verified := s.gateway.Verify(ctx, evt.Reference)
	if !verified.OK() {
		return false, fmt.Errorf("%w: verify %s: %s", ErrGateway, evt.Reference, verified.Message)
	}
	if status := verified.String("status"); status != "success" {
		s.logger.Warn("WEBHOOK", "charge.success not confirmed by provider", map[string]interface{}{"reference": evt.Reference, "status": status})
		return false, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	tx, err := uow.PaymentRepository().FindByReference(ctx, evt.Reference)
	if err != nil {
		return false, err
	}
	if tx == nil {
		return false, fmt.Errorf("%w: %s", ErrPaymentNotFound, evt.Reference)
	}

	var purchase *purchaseTarget
	if tx.SubscriptionId == nil {
		if purchase, err = s.resolvePurchase(ctx, uow, tx); err != nil {
			return false, err
		}
	}

	// claiming pending -> success inside the transaction serializes duplicate deliveries
	claimed, err := uow.PaymentRepository().UpdateStatus(ctx, tx.Reference, entity.PaymentStatusSuccess, verified.Data)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.logger.Info("WEBHOOK", "Transaction already settled", map[string]interface{}{"reference": tx.Reference, "status": tx.Status})
		return true, nil
	}
	if err := uow.Commit(); err != nil {
		return false, err
	}

	// The claim is committed before any lifecycle write, so a redelivery
	// finds the transaction settled and cannot grant the period twice.
	if purchase == nil {
		s.applyRenewal(ctx, tx)
		return true, nil
	}

	method := tx.Provider
	if _, err := s.subscriptions.CreateSubscription(ctx, purchase.user, purchase.plan.Name, payment.ConvertFromKobo(tx.AmountMinor), &method, purchase.plan.Features); err != nil {
		s.logger.Error("WEBHOOK", "Payment captured but subscription was not created", map[string]interface{}{
			"reference": tx.Reference,
			"user_id":   tx.UserId,
			"error":     err,
		})
		return false, err
	}
	return true, nil
}

// applyRenewal never fails the webhook: the charge is captured either way and
// a rejected renewal is left for manual review.
func (s *paymentService) applyRenewal(ctx context.Context, tx *entity.PaymentTransaction) {
	sub, err := s.subscriptions.GetSubscription(ctx, *tx.SubscriptionId)
	if err != nil {
		s.logger.Error("WEBHOOK", "Paid renewal references missing subscription", map[string]interface{}{
			"reference":       tx.Reference,
			"subscription_id": *tx.SubscriptionId,
			"error":           err,
		})
		return
	}
	if !s.subscriptions.RenewSubscription(ctx, sub) {
		s.logger.Error("WEBHOOK", "Payment captured but renewal was not applied", map[string]interface{}{
			"reference":       tx.Reference,
			"subscription_id": sub.Id,
			"status":          sub.Status,
		})
	}
}

type purchaseTarget struct {
	plan *entity.Plan
	user *entity.User
}

func (s *paymentService) resolvePurchase(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.PaymentTransaction) (*purchaseTarget, error) {
	plan, err := uow.PlanRepository().FindBySlug(ctx, tx.PlanSlug)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, tx.PlanSlug)
	}
	user, err := uow.UserRepository().FindByID(ctx, tx.UserId)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, tx.UserId)
	}
	return &purchaseTarget{plan: plan, user: user}, nil
}

func (s *paymentService) handleChargeFailed(ctx context.Context, evt payment.WebhookEvent) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	tx, err := uow.PaymentRepository().FindByReference(ctx, evt.Reference)
	if err != nil {
		return false, err
	}
	if tx == nil {
		s.logger.Warn("WEBHOOK", "Failure webhook for unknown reference", map[string]interface{}{"reference": evt.Reference})
		return false, nil
	}

	claimed, err := uow.PaymentRepository().UpdateStatus(ctx, tx.Reference, entity.PaymentStatusFailed, evt.Data)
	if err != nil {
		return false, err
	}
	if !claimed || tx.SubscriptionId == nil {
		return true, nil
	}

	sub, err := s.subscriptions.GetSubscription(ctx, *tx.SubscriptionId)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return true, nil
		}
		return false, err
	}

	var reason *string
	if evt.Reason != "" {
		reason = &evt.Reason
	}
	s.subscriptions.HandlePaymentFailure(ctx, sub, reason)
	return true, nil
}

func (s *paymentService) recordWebhook(event, outcome string) {
	if s.metrics != nil {
		s.metrics.IncWebhook(event, outcome)
	}
}
