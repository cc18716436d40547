package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/editorial"
	"github.com/Arman3747/BloodConnect-Server/models"
)

// ---------------- CREATE ----------------

// CreateBlog accepts JSON or a multipart form; a "thumbnail" file part is
// uploaded instead of a thumbnail URL.
func CreateBlog(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.BlogInput
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}

		var thumb *editorial.Thumbnail
		if fileHeader, err := c.FormFile("thumbnail"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				respondError(c, apperr.Wrap(apperr.CodeValidation, "failed to open file", err))
				return
			}
			defer file.Close()
			thumb = &editorial.Thumbnail{Filename: fileHeader.Filename, Body: file}
		}

		blog, err := svc.Create(c.Request.Context(), caller(c), input, thumb)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"insertedId": blog.ID.Hex(), "thumbnail": blog.Thumbnail})
	}
}

// ---------------- LIST ----------------
func ListPublishedBlogs(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		blogs, err := svc.ListPublished(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, blogs)
	}
}

func ListAllBlogs(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		blogs, err := svc.ListAll(c.Request.Context(), caller(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, blogs)
	}
}

// ---------------- GET ----------------
func GetPublishedBlog(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		blog, err := svc.GetPublished(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, blog)
	}
}

func GetAnyBlog(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		blog, err := svc.GetAny(c.Request.Context(), caller(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, blog)
	}
}

// ---------------- UPDATE ----------------
func PatchBlogStatus(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badBody(c, err)
			return
		}
		res, err := svc.PatchStatus(c.Request.Context(), caller(c), c.Param("id"), input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updateJSON(res))
	}
}

func EditBlog(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.BlogInput
		if err := decode(c, &input); err != nil {
			badBody(c, err)
			return
		}
		res, err := svc.Edit(c.Request.Context(), caller(c), c.Param("id"), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, updateJSON(res))
	}
}

// ---------------- DELETE ----------------
func DeleteBlog(svc *editorial.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"acknowledged": true, "deletedCount": 1})
	}
}
