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

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/model"
)

func (d Datasource) AppendOperation(ctx context.Context, name, details string, status model.OperationStatus, errorMessage string) error {
	ctx, span := tracer.Start(ctx, "Appending operation log")
	defer span.End()

	if status == "" {
		status = model.OperationSuccess
	}

	var errMsg sql.NullString
	if errorMessage != "" {
		errMsg = sql.NullString{String: errorMessage, Valid: true}
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO operation_logs (operation, details, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, name, details, status, errMsg, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to append operation log", err)
	}
	return nil
}

func (d Datasource) ListOperations(ctx context.Context, limit int) ([]model.OperationLog, error) {
	ctx, span := tracer.Start(ctx, "Fetching operation logs from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, operation, details, status, error_message, created_at
		FROM operation_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve operation logs", err)
	}
	defer rows.Close()

	logs := []model.OperationLog{}
	for rows.Next() {
		var entry model.OperationLog
		var details, errorMessage sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Operation, &details, &entry.Status, &errorMessage, &entry.Timestamp); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan operation log", err)
		}
		entry.Details = details.String
		entry.ErrorMessage = errorMessage.String
		logs = append(logs, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over operation logs", err)
	}
	return logs, nil
}
