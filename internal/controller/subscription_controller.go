package controller

import (
	"fmt"

	"marketplace-be/internal/dto"
	"marketplace-be/internal/entity"
	"marketplace-be/internal/pkg/serverutils"
	"marketplace-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	GetActive(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Renew(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	PaymentFailure(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.ISubscriptionService
}

func NewSubscriptionController(service service.ISubscriptionService) ISubscriptionController {
	return &subscriptionController{service: service}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/subscriptions", auth)
	h.Post("/", serverutils.AdminOnly, c.Create)
	h.Get("/", c.List)
	h.Get("/active", c.GetActive)
	h.Get("/:id", c.Get)
	h.Post("/:id/renew", serverutils.AdminOnly, c.Renew)
	h.Post("/:id/cancel", c.Cancel)
	h.Post("/:id/payment-failure", serverutils.AdminOnly, c.PaymentFailure)
}

// Create grants a plan without checkout. user_id defaults to the caller.
func (c *subscriptionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSubscriptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	userId, err := serverutils.UserIDFromContext(ctx)
	if err != nil {
		return err
	}
	if req.UserId != nil {
		userId = *req.UserId
	}

	sub, err := c.service.GrantSubscription(ctx.UserContext(), userId, req.PlanName, req.Price, req.PaymentMethod, req.Features)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Subscription created", dto.NewSubscriptionResponse(sub)))
}

func (c *subscriptionController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromContext(ctx)
	if err != nil {
		return err
	}

	subs, err := c.service.ListUserSubscriptions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscriptions", dto.NewSubscriptionResponses(subs)))
}

func (c *subscriptionController) GetActive(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromContext(ctx)
	if err != nil {
		return err
	}

	sub, err := c.service.GetActiveSubscription(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Active subscription", dto.NewSubscriptionResponse(sub)))
}

func (c *subscriptionController) Get(ctx *fiber.Ctx) error {
	sub, err := c.load(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription", dto.NewSubscriptionResponse(sub)))
}

func (c *subscriptionController) Renew(ctx *fiber.Ctx) error {
	sub, err := c.load(ctx)
	if err != nil {
		return err
	}
	if !c.service.RenewSubscription(ctx.UserContext(), sub) {
		return transitionError(sub, entity.SubscriptionStatusActive)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription renewed", dto.NewSubscriptionResponse(sub)))
}

func (c *subscriptionController) Cancel(ctx *fiber.Ctx) error {
	sub, err := c.load(ctx)
	if err != nil {
		return err
	}
	if !c.service.CancelSubscription(ctx.UserContext(), sub) {
		return transitionError(sub, entity.SubscriptionStatusCancelled)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription cancelled", dto.NewSubscriptionResponse(sub)))
}

func (c *subscriptionController) PaymentFailure(ctx *fiber.Ctx) error {
	var req dto.PaymentFailureRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	sub, err := c.load(ctx)
	if err != nil {
		return err
	}
	if !entity.CanTransition(sub.Status, entity.SubscriptionStatusPaymentFailed) {
		return transitionError(sub, entity.SubscriptionStatusPaymentFailed)
	}

	c.service.HandlePaymentFailure(ctx.UserContext(), sub, req.Reason)
	if sub.Status != entity.SubscriptionStatusPaymentFailed {
		return service.ErrTransitionFailed
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription marked as payment failed", dto.NewSubscriptionResponse(sub)))
}

// load fetches the :id subscription, visible to its owner and to admins.
func (c *subscriptionController) load(ctx *fiber.Ctx) (*entity.Subscription, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid subscription id")
	}
	userId, err := serverutils.UserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := c.service.GetSubscription(ctx.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if sub.UserId != userId && !serverutils.IsAdmin(ctx) {
		// hide other users' subscriptions
		return nil, service.ErrSubscriptionNotFound
	}
	return sub, nil
}

// transitionError tells a refused transition apart from one that lost a race
// or failed to persist.
func transitionError(sub *entity.Subscription, to entity.SubscriptionStatus) error {
	if !entity.CanTransition(sub.Status, to) {
		return fmt.Errorf("%w: subscription is %s", service.ErrInvalidTransition, sub.Status)
	}
	return service.ErrTransitionFailed
}
