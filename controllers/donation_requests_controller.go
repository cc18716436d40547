package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/donation"
	"github.com/Arman3747/BloodConnect-Server/models"
)

// ---------------- CREATE ----------------
func CreateDonationRequest(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.DonationRequestInput
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}
		dr, err := svc.Create(c.Request.Context(), caller(c), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"insertedId": dr.ID.Hex()})
	}
}

// ---------------- LIST ----------------
func ListPublicDonationRequests(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := svc.ListPublic(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

func ListMyDonationRequests(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := svc.ListByRequester(c.Request.Context(), caller(c), c.Query("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

func ListAllDonationRequests(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := queryInt(c, "page", 1)
		if err != nil {
			respondError(c, err)
			return
		}
		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			respondError(c, err)
			return
		}
		result, err := svc.ListAdmin(c.Request.Context(), caller(c), page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ---------------- GET ----------------
func GetDonationRequest(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		dr, err := svc.Get(c.Request.Context(), caller(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dr)
	}
}

// ---------------- UPDATE ----------------
func UpdateDonationRequest(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.DonationRequestInput
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}
		res, err := svc.Update(c.Request.Context(), caller(c), c.Param("id"), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updateJSON(res))
	}
}

func PatchDonationStatus(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status string `json:"donation_status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badBody(c, err)
			return
		}
		dr, err := svc.PatchStatus(c.Request.Context(), caller(c), c.Param("id"), input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":         "Donation status updated successfully",
			"donation_status": dr.DonationStatus,
		})
	}
}

// ---------------- DELETE ----------------
func DeleteDonationRequest(svc *donation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Delete(c.Request.Context(), caller(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Donation request deleted successfully",
			"id":      id,
		})
	}
}
