package controller

import (
	"marketplace-be/internal/dto"
	"marketplace-be/internal/pkg/serverutils"
	"marketplace-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetPlans(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	RenewCheckout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type paymentController struct {
	service         service.IPaymentService
	signatureHeader string
}

// NewPaymentController reads the webhook signature from signatureHeader. An
// empty header name suits providers that sign inside the body.
func NewPaymentController(service service.IPaymentService, signatureHeader string) IPaymentController {
	return &paymentController{service: service, signatureHeader: signatureHeader}
}

func (c *paymentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/payment")
	h.Post("/webhook", c.Webhook)
	h.Get("/plans", c.GetPlans)

	// Protected Routes
	h.Post("/checkout", auth, c.Checkout)
	h.Post("/:id/renew-checkout", auth, c.RenewCheckout)
}

func (c *paymentController) GetPlans(ctx *fiber.Ctx) error {
	res, err := c.service.GetPlans(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching plans", res))
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	var req dto.CheckoutRequest
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

	res, err := c.service.Checkout(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout created", res))
}

func (c *paymentController) RenewCheckout(ctx *fiber.Ctx) error {
	subscriptionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid subscription id")
	}

	var req dto.RenewCheckoutRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	userId, err := serverutils.UserIDFromContext(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.RenewCheckout(ctx.UserContext(), userId, subscriptionId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Renewal checkout created", res))
}

// Webhook must see the body exactly as sent; the signature covers the raw bytes.
func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	signature := ""
	if c.signatureHeader != "" {
		signature = ctx.Get(c.signatureHeader)
	}

	// fiber reuses the body buffer after the handler returns
	body := append([]byte(nil), ctx.Body()...)
	if err := c.service.HandleWebhook(ctx.UserContext(), body, signature); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("OK", nil))
}
