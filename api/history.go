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
)

func (a Api) GetWithdrawalHistory(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		badRequest(c, err)
		return
	}

	records, err := a.withdrawer.History(c.Request.Context(), limit)
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": records})
}

func (a Api) GetOperationLogs(c *gin.Context) {
	limit, err := queryLimit(c, 100)
	if err != nil {
		badRequest(c, err)
		return
	}

	logs, err := a.withdrawer.Operations(c.Request.Context(), limit)
	if err != nil {
		replyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": logs})
}
