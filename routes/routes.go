package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Arman3747/BloodConnect-Server/controllers"
	"github.com/Arman3747/BloodConnect-Server/directory"
	"github.com/Arman3747/BloodConnect-Server/donation"
	"github.com/Arman3747/BloodConnect-Server/editorial"
	"github.com/Arman3747/BloodConnect-Server/ledger"
)

type Services struct {
	Directory *directory.Service
	Donations *donation.Service
	Editorial *editorial.Service
	Ledger    *ledger.Service
}

// SetupRoutes mounts every endpoint. auth guards the private routes; the
// services still authorize each operation themselves.
func SetupRoutes(r *gin.Engine, svc Services, auth gin.HandlerFunc) {
	// public
	r.GET("/", controllers.Health())
	r.GET("/search", controllers.SearchDonors(svc.Directory))
	r.GET("/public-donation-requests", controllers.ListPublicDonationRequests(svc.Donations))
	r.POST("/allUsers", controllers.RegisterUser(svc.Directory))
	r.GET("/publicBlogs", controllers.ListPublishedBlogs(svc.Editorial))
	r.GET("/publicBlogs/:id", controllers.GetPublishedBlog(svc.Editorial))

	// protected
	private := r.Group("")
	private.Use(auth)

	users := private.Group("/allUsers")
	{
		users.GET("", controllers.ListUsers(svc.Directory))
		users.GET("/status", controllers.GetUserStatus(svc.Directory))
		users.GET("/role", controllers.GetUserRole(svc.Directory))
		users.PUT("/:id", controllers.UpdateUser(svc.Directory))
		users.PATCH("/role/:id", controllers.SetUserRole(svc.Directory))
		users.PATCH("/status/:id", controllers.SetUserStatus(svc.Directory))
	}

	requests := private.Group("/donation-requests")
	{
		requests.GET("", controllers.ListMyDonationRequests(svc.Donations))
		requests.POST("", controllers.CreateDonationRequest(svc.Donations))
		requests.GET("/:id", controllers.GetDonationRequest(svc.Donations))
		requests.PUT("/:id", controllers.UpdateDonationRequest(svc.Donations))
		requests.PATCH("/:id", controllers.PatchDonationStatus(svc.Donations))
		requests.DELETE("/:id", controllers.DeleteDonationRequest(svc.Donations))
	}
	private.GET("/admin-donation-requests", controllers.ListAllDonationRequests(svc.Donations))

	// Blogs
	private.POST("/addBlogs", controllers.CreateBlog(svc.Editorial))
	private.GET("/blogs", controllers.ListAllBlogs(svc.Editorial))
	private.GET("/blogs/:id", controllers.GetAnyBlog(svc.Editorial))
	admin := private.Group("/admin/blogs")
	{
		admin.PATCH("/:id", controllers.PatchBlogStatus(svc.Editorial))
		admin.PUT("/:id", controllers.EditBlog(svc.Editorial))
		admin.DELETE("/:id", controllers.DeleteBlog(svc.Editorial))
	}

	// Funding
	private.GET("/funds", controllers.ListFunds(svc.Ledger))
	private.POST("/funds", controllers.RecordContribution(svc.Ledger))
	private.POST("/create-payment-intent", controllers.CreatePaymentIntent(svc.Ledger))
}
