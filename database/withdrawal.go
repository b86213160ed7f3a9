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
	"errors"
	"time"

	"github.com/lorenzopapa2/withdrawer/internal/apierror"
	"github.com/lorenzopapa2/withdrawer/model"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("withdrawer.database")

func (d Datasource) CreatePending(ctx context.Context, coin, network, address string, amount, fee decimal.Decimal) (int64, error) {
	ctx, span := tracer.Start(ctx, "Saving pending withdrawal to db")
	defer span.End()

	now := time.Now().UTC()
	var id int64
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO withdrawal_logs (coin, network, address, amount, fee, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, coin, network, address, amount.String(), fee.String(), model.StatusPending, now, now).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create withdrawal record", err)
	}
	return id, nil
}

func (d Datasource) MarkSubmitted(ctx context.Context, id int64, txID string) error {
	ctx, span := tracer.Start(ctx, "Marking withdrawal submitted")
	defer span.End()

	return d.finish(ctx, id, model.StatusSubmitted, `
		UPDATE withdrawal_logs SET status = $1, tx_id = $2, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'
	`, model.StatusSubmitted, txID, time.Now().UTC(), id)
}

func (d Datasource) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	ctx, span := tracer.Start(ctx, "Marking withdrawal failed")
	defer span.End()

	return d.finish(ctx, id, model.StatusFailed, `
		UPDATE withdrawal_logs SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'
	`, model.StatusFailed, errorMessage, time.Now().UTC(), id)
}

// finish runs a terminal update and reports a conflict when the record had
// already left PENDING.
func (d Datasource) finish(ctx context.Context, id int64, to model.WithdrawalStatus, query string, args ...interface{}) error {
	res, err := d.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update withdrawal status", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows > 0 {
		return nil
	}

	var current model.WithdrawalStatus
	err = d.Conn.QueryRowContext(ctx, `SELECT status FROM withdrawal_logs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound, "Withdrawal record not found", err)
	}
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve withdrawal status", err)
	}
	return apierror.NewAPIError(apierror.ErrConflict, "Withdrawal record is already "+string(current)+", cannot mark "+string(to), nil)
}

func (d Datasource) GetWithdrawal(ctx context.Context, id int64) (*model.WithdrawalRecord, error) {
	ctx, span := tracer.Start(ctx, "Fetching withdrawal from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, coin, network, address, amount, fee, status, tx_id, error_message, created_at, updated_at
		FROM withdrawal_logs
		WHERE id = $1
	`, id)

	record, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Withdrawal record not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve withdrawal record", err)
	}
	return &record, nil
}

func (d Datasource) ListRecent(ctx context.Context, limit int) ([]model.WithdrawalRecord, error) {
	ctx, span := tracer.Start(ctx, "Fetching recent withdrawals from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, coin, network, address, amount, fee, status, tx_id, error_message, created_at, updated_at
		FROM withdrawal_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve withdrawal history", err)
	}
	defer rows.Close()

	records := []model.WithdrawalRecord{}
	for rows.Next() {
		record, err := scanWithdrawal(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan withdrawal record", err)
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over withdrawals", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWithdrawal(s scanner) (model.WithdrawalRecord, error) {
	var record model.WithdrawalRecord
	var network, txID, errorMessage sql.NullString
	err := s.Scan(&record.ID, &record.Coin, &network, &record.Address, &record.Amount, &record.Fee,
		&record.Status, &txID, &errorMessage, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return record, err
	}
	record.Network = network.String
	record.TxID = txID.String
	record.ErrorMessage = errorMessage.String
	return record, nil
}
