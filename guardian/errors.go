// Copyright 2025 Athos
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guardian

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ValidationError reports a malformed domain, identifier or date.
// Inputs are rejected explicitly, never silently coerced beyond
// normalization.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// AuthorizationError reports a scope mismatch: the caller referenced a
// resource whose tenant or owner falls outside its permitted scope.
// It is raised before any data is read, so nothing partial ever leaks.
type AuthorizationError struct {
	Subject  string
	Role     string
	Resource string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("subject %s (role %s) is not authorized for %s", e.Subject, e.Role, e.Resource)
}

// RepositoryError wraps a failure of the external relational store.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError wraps err with the failing repository operation.
func NewRepositoryError(op string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Err: err}
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsRepository reports whether err is a RepositoryError.
func IsRepository(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
