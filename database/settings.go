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
)

func (d Datasource) SaveSetting(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "Saving setting")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO app_config (config_key, config_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (config_key) DO UPDATE SET config_value = excluded.config_value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save setting", err)
	}
	return nil
}

// GetSetting returns an ErrNotFound APIError when the key was never saved.
func (d Datasource) GetSetting(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetching setting")
	defer span.End()

	var value sql.NullString
	err := d.Conn.QueryRowContext(ctx, `SELECT config_value FROM app_config WHERE config_key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apierror.NewAPIError(apierror.ErrNotFound, "Setting not found", err)
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve setting", err)
	}
	return value.String, nil
}
