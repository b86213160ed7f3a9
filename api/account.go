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
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/lorenzopapa2/withdrawer/api/model"
)

func (a Api) GetBalance(c *gin.Context) {
	asset, passed := c.Params.Get("asset")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "asset is required. pass asset in the route /:asset"})
		return
	}

	balance, err := a.withdrawer.Balance(c.Request.Context(), asset)
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": balance})
}

func (a Api) GetAccount(c *gin.Context) {
	account, err := a.withdrawer.AccountInfo(c.Request.Context())
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": account})
}

func (a Api) GetExchangeConfig(c *gin.Context) {
	settings, err := a.withdrawer.ExchangeSettings(c.Request.Context())
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": settings})
}

func (a Api) UpdateExchangeConfig(c *gin.Context) {
	var update model2.UpdateExchangeConfig
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}

	if err := update.ValidateUpdateExchangeConfig(); err != nil {
		badRequest(c, err)
		return
	}

	err := a.withdrawer.SaveExchangeSettings(c.Request.Context(), update.ApiKey, update.ApiSecret, update.Testnet)
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.Ack{Success: true, Message: "exchange configuration saved"})
}

// GetIPInfo reports the addresses to allowlist on the exchange api key.
func (a Api) GetIPInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": a.ipResolver.Lookup(c.Request.Context())})
}
