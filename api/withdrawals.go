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
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	model2 "github.com/lorenzopapa2/withdrawer/api/model"
)

func (a Api) Withdraw(c *gin.Context) {
	var newWithdrawal model2.CreateWithdrawal
	if err := c.ShouldBindJSON(&newWithdrawal); err != nil {
		badRequest(c, err)
		return
	}

	if err := newWithdrawal.ValidateCreateWithdrawal(); err != nil {
		badRequest(c, err)
		return
	}

	ack, err := a.withdrawer.Withdraw(c.Request.Context(), newWithdrawal.ToSingleWithdrawal())
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, model2.Ack{
		Success:  true,
		Message:  "withdrawal request submitted, processing",
		RecordID: ack.RecordID,
	})
}

func (a Api) BatchWithdraw(c *gin.Context) {
	var newBatch model2.CreateBatchWithdrawal
	if err := c.ShouldBindJSON(&newBatch); err != nil {
		badRequest(c, err)
		return
	}

	if err := newBatch.ValidateCreateBatchWithdrawal(); err != nil {
		badRequest(c, err)
		return
	}

	ack, err := a.withdrawer.BatchWithdraw(c.Request.Context(), newBatch.ToBatchWithdrawal())
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, model2.Ack{
		Success: true,
		Message: fmt.Sprintf("batch withdrawal task started with %d addresses", ack.Total),
		TaskID:  ack.TaskID,
	})
}

func (a Api) SmartWithdraw(c *gin.Context) {
	var newSmart model2.CreateSmartWithdrawal
	if err := c.ShouldBindJSON(&newSmart); err != nil {
		badRequest(c, err)
		return
	}

	if err := newSmart.ValidateCreateSmartWithdrawal(); err != nil {
		badRequest(c, err)
		return
	}

	ack, err := a.withdrawer.SmartWithdraw(c.Request.Context(), newSmart.ToSmartWithdrawal())
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, model2.Ack{
		Success: true,
		Message: fmt.Sprintf("smart withdrawal task started with %d addresses", ack.Total),
		TaskID:  ack.TaskID,
	})
}
