package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"splpay/internal/checkout"
	"splpay/internal/middleware"
	"splpay/internal/models"
	"splpay/internal/payment"
	"splpay/internal/reconcile"
	"splpay/internal/spltoken"
	"splpay/internal/store"
)

const qrPixelSize = 256

// Handler wires the payment pipeline into the HTTP surface.
type Handler struct {
	runCtx      context.Context
	store       *store.GormStore
	relay       *checkout.Relay
	reconciler  *reconcile.Reconciler
	provisioner *spltoken.Provisioner
	payer       spltoken.Signer

	merchantOwner solana.PublicKey
	mint          solana.PublicKey
	mintDecimals  uint8

	log *logrus.Entry
}

func New(
	runCtx context.Context,
	st *store.GormStore,
	relay *checkout.Relay,
	rec *reconcile.Reconciler,
	prov *spltoken.Provisioner,
	payer spltoken.Signer,
	merchantOwner, mint solana.PublicKey,
	mintDecimals uint8,
	log *logrus.Entry,
) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &Handler{
		runCtx:        runCtx,
		store:         st,
		relay:         relay,
		reconciler:    rec,
		provisioner:   prov,
		payer:         payer,
		merchantOwner: merchantOwner,
		mint:          mint,
		mintDecimals:  mintDecimals,
		log:           log.WithField("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.POST("/payment-requests", h.createPaymentRequest)
	r.GET("/orders/:orderId", h.getOrder)
	r.POST("/transactions", h.submitTransaction)

	admin := r.Group("/admin", middleware.LocalOnly())
	admin.POST("/provision", h.provision)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createPaymentRequest(c *gin.Context) {
	var req models.CreatePaymentRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	request, err := payment.BuildRequest(h.merchantOwner, h.mint, amount, h.mintDecimals, req.Label, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNonPositiveAmount),
			errors.Is(err, payment.ErrAmountPrecision),
			errors.Is(err, payment.ErrAmountRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "build request failed"})
		}
		return
	}

	baseUnits, err := payment.ToBaseUnits(amount, h.mintDecimals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := &store.Order{
		OrderID:        uuid.NewString(),
		Reference:      request.Reference.String(),
		RecipientOwner: request.RecipientOwner.String(),
		Recipient:      request.RecipientTokenAccount.String(),
		Mint:           request.Mint.String(),
		Amount:         baseUnits,
		Label:          request.Label,
		Message:        request.Message,
	}
	if err := h.store.CreateOrder(c.Request.Context(), order); err != nil {
		h.log.WithError(err).Error("create order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create order failed"})
		return
	}

	qr, err := request.QRCode(qrPixelSize)
	if err != nil {
		h.log.WithError(err).Error("render qr")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr rendering failed"})
		return
	}

	// Reconciliation outlives the HTTP request, so it runs on the
	// server's base context, not the request's.
	if h.reconciler != nil {
		log := h.log.WithField("order_id", order.OrderID)
		h.reconciler.Start(h.runCtx, order.Reference, order.OrderID, func(u reconcile.Update) {
			if u.Status.Terminal() {
				log.WithField("status", u.Status).Info("order reconciliation finished")
			}
		})
	}

	c.JSON(http.StatusOK, models.CreatePaymentRequestResponse{
		OrderID:               order.OrderID,
		Reference:             order.Reference,
		RecipientTokenAccount: order.Recipient,
		URI:                   request.URI(),
		QRPNGBase64:           base64.StdEncoding.EncodeToString(qr),
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.store.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.log.WithError(err).Error("get order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	status := reconcile.Status(order.Status)
	c.JSON(http.StatusOK, models.OrderResponse{
		OrderID:     order.OrderID,
		Reference:   order.Reference,
		Status:      order.Status,
		StatusText:  status.UserMessage(),
		Amount:      payment.FromBaseUnits(order.Amount, h.mintDecimals).String(),
		TxSignature: order.TxSignature,
		BlockHeight: order.BlockHeight,
		CreatedAt:   order.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) submitTransaction(c *gin.Context) {
	var req models.SubmitTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.relay.SubmitSigned(c.Request.Context(), req.SerializedTx)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		case errors.Is(err, checkout.ErrBadTransaction):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, checkout.ErrBroadcastFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.SubmitTxResponse{
		Signature:   result.Signature,
		ExplorerURL: result.ExplorerURL,
	})
}

func (h *Handler) provision(c *gin.Context) {
	if h.provisioner == nil || h.payer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no payer configured"})
		return
	}
	var req models.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner address"})
		return
	}

	result, err := h.provisioner.EnsureAccount(c.Request.Context(), h.payer, owner, h.mint)
	if err != nil {
		switch {
		case errors.Is(err, spltoken.ErrInsufficientFunds):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	resp := models.ProvisionResponse{
		Account: result.Account.String(),
		Created: result.Created,
	}
	if result.Created {
		resp.Signature = result.Signature.String()
	}
	c.JSON(http.StatusOK, resp)
}
