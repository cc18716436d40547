package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/directory"
	"github.com/Arman3747/BloodConnect-Server/models"
)

// ---------------- SEARCH ----------------
func SearchDonors(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.DonorSearch
		if err := c.ShouldBindQuery(&q); err != nil {
			badBody(c, err)
			return
		}
		donors, err := svc.Search(c.Request.Context(), q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, donors)
	}
}

// ---------------- REGISTER ----------------
func RegisterUser(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.Registration
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}
		u, err := svc.Register(c.Request.Context(), caller(c), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"acknowledged": true, "insertedId": u.ID.Hex()})
	}
}

// ---------------- LIST ----------------
func ListUsers(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := svc.List(c.Request.Context(), caller(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// ---------------- STATUS / ROLE ----------------
func GetUserStatus(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context(), caller(c), c.Query("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}

func GetUserRole(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := svc.Role(c.Request.Context(), caller(c), c.Query("email"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": role})
	}
}

// ---------------- UPDATE ----------------
func UpdateUser(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UserProfile
		if err := c.ShouldBindJSON(&input); err != nil {
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

func SetUserRole(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Role string `json:"user_role"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badBody(c, err)
			return
		}
		res, err := svc.SetRole(c.Request.Context(), caller(c), c.Param("id"), input.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updateJSON(res))
	}
}

func SetUserStatus(svc *directory.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status string `json:"user_status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badBody(c, err)
			return
		}
		res, err := svc.SetStatus(c.Request.Context(), caller(c), c.Param("id"), input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updateJSON(res))
	}
}
