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
	"github.com/lorenzopapa2/withdrawer/internal/files"
)

func (a Api) parseUpload(c *gin.Context) ([]files.Recipient, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "file is required"})
		return nil, false
	}
	defer file.Close()

	recipients, err := files.ParseRecipients(file, header.Filename)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	return recipients, true
}

// ImportAddresses parses an uploaded recipient list without starting
// anything, so it can be reviewed before submission.
func (a Api) ImportAddresses(c *gin.Context) {
	recipients, ok := a.parseUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": recipients})
}

// UploadBatchWithdraw starts a batch withdrawal from an uploaded list. Every
// row must carry an amount.
func (a Api) UploadBatchWithdraw(c *gin.Context) {
	recipients, ok := a.parseUpload(c)
	if !ok {
		return
	}

	newBatch := model2.CreateBatchWithdrawal{
		Coin:      c.PostForm("coin"),
		Network:   c.PostForm("network"),
		Addresses: make([]model2.BatchAddress, len(recipients)),
	}
	for i, r := range recipients {
		newBatch.Addresses[i] = model2.BatchAddress{Address: r.Address, AddressTag: r.Tag, Amount: r.Amount}
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
