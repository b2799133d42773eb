package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clearwm/clearwm-service/http/controller"
	middlewares "github.com/clearwm/clearwm-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	r.GET("/", ctrl.Root)
	r.GET("/health", ctrl.Health)
	// Download stays outside auth: in local mode it is the stable reference
	// handed to clients.
	r.GET("/download/:task_id", ctrl.Download)

	taskRoutes := r.Group("/")
	{
		taskRoutes.Use(middles.AuthMiddleware)
		taskRoutes.POST("/submit_remove_task", ctrl.SubmitRemoveTask)
		taskRoutes.GET("/get_results", ctrl.GetResults)
	}

	return r
}
