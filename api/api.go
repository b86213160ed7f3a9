/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lorenzopapa2/withdrawer"
	"github.com/lorenzopapa2/withdrawer/api/middleware"
	"github.com/lorenzopapa2/withdrawer/config"
	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/internal/ipinfo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Api struct {
	withdrawer *withdrawer.Withdrawer
	router     *gin.Engine
	upgrader   websocket.Upgrader
	ipResolver *ipinfo.Resolver
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/withdraw", a.Withdraw)
	router.POST("/batch-withdraw", a.BatchWithdraw)
	router.POST("/smart-withdraw", a.SmartWithdraw)
	router.POST("/batch-withdraw/upload", a.UploadBatchWithdraw)
	router.POST("/addresses/import", a.ImportAddresses)

	router.GET("/tasks/:id", a.GetTask)
	router.GET("/tasks", a.GetAllTasks)

	router.GET("/withdrawal-history", a.GetWithdrawalHistory)
	router.GET("/operation-logs", a.GetOperationLogs)

	router.GET("/balance/:asset", a.GetBalance)
	router.GET("/account", a.GetAccount)

	router.GET("/config", a.GetExchangeConfig)
	router.POST("/config", a.UpdateExchangeConfig)
	router.GET("/ip-info", a.GetIPInfo)

	router.GET("/ws", a.StreamEvents)
	return a.router
}

func NewAPI(w *withdrawer.Withdrawer) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware("withdrawer"))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{
		withdrawer: w,
		router:     r,
		upgrader:   newUpgrader(conf.Server.AllowedOrigins),
		ipResolver: ipinfo.NewResolver(),
	}
}

// replyError maps core and datasource errors to a status code and the
// {success, message} envelope every endpoint answers with.
func replyError(c *gin.Context, err error) {
	var rejected *withdrawer.ItemExecutionError
	switch {
	case withdrawer.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.As(err, &rejected):
		body := gin.H{"success": false, "message": rejected.Reason}
		if rejected.RecordID != 0 {
			body["log_id"] = rejected.RecordID
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, withdrawer.ErrTaskNotFound), errors.Is(err, withdrawer.ErrBalanceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, withdrawer.ErrNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, withdrawer.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"success": false, "message": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
}

func queryLimit(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	return limit, nil
}
