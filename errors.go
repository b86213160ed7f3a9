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

package withdrawer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrClosed       = errors.New("withdrawer is closed")
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotConfigured is returned by exchange operations until api credentials
	// have been saved and a connection was made.
	ErrNotConfigured = errors.New("please configure the exchange api first")
)

// ValidationError rejects a request before anything is executed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ItemExecutionError describes one item that could not be submitted. Inside
// tasks it is absorbed into the item's record and progress event.
type ItemExecutionError struct {
	Address  string
	Amount   decimal.Decimal
	RecordID int64
	Reason   string
	Err      error
}

func (e *ItemExecutionError) Error() string {
	return fmt.Sprintf("withdrawal of %s to %s failed: %s", e.Amount.String(), e.Address, e.Reason)
}

func (e *ItemExecutionError) Unwrap() error {
	return e.Err
}

// ExecutorFatalError aborts a task. It is reported through a task error
// event and never returned to the submitter.
type ExecutorFatalError struct {
	TaskID string
	Cause  error
}

func (e *ExecutorFatalError) Error() string {
	return fmt.Sprintf("task %s aborted: %v", e.TaskID, e.Cause)
}

func (e *ExecutorFatalError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err was raised by request validation.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsItemExecutionError reports whether err is a synchronous item failure.
func IsItemExecutionError(err error) bool {
	var v *ItemExecutionError
	return errors.As(err, &v)
}
