package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/ledger"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/utils"
)

// ---------------- LIST ----------------
func ListFunds(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		funds, err := svc.ListFunds(c.Request.Context(), caller(c))
		if err != nil {
			respondError(c, err)
			return
		}
		if len(funds) == 0 {
			c.JSON(http.StatusOK, []models.FundEntry{})
			return
		}

		// --- ETag from the newest entry ---
		latest := funds[0]
		etag := utils.GenerateETag(latest.ID, latest.PaidAt)
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.PaidAt.UTC().Format(http.TimeFormat))
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}

		c.JSON(http.StatusOK, funds)
	}
}

// ---------------- CREATE ----------------
func RecordContribution(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ContributionInput
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}
		entry, err := svc.RecordContribution(c.Request.Context(), caller(c), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":    "Payment recorded",
			"insertedId": entry.ID.Hex(),
			"amount":     entry.Amount,
			"currency":   entry.Currency,
		})
	}
}

// ---------------- PAYMENT INTENT ----------------
func CreatePaymentIntent(svc *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			AmountInCents int64 `json:"amountInCents"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badBody(c, err)
			return
		}
		secret, err := svc.CreatePaymentIntent(c.Request.Context(), caller(c), input.AmountInCents)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"clientSecret": secret})
	}
}
