/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode_String(t *testing.T) {
	tests := []struct {
		name string
		code StatusCode
		want string
	}{
		{"InvalidArgument", ErrCodeInvalidArgument, "invalid_argument"},
		{"NotFound", ErrCodeNotFound, "not_found"},
		{"ResourceExhausted", ErrCodeResourceExhausted, "resource_exhausted"},
		{"FailedPrecondition", ErrCodeFailedPrecondition, "failed_precondition"},
		{"Internal", ErrCodeInternal, "internal"},
		{"Unavailable", ErrCodeUnavailable, "unavailable"},
		{"Unknown", StatusCode(999), "code_999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.String())
		})
	}
}

func TestStatusCode_Classification(t *testing.T) {
	for _, code := range []StatusCode{
		ErrCodeInvalidArgument,
		ErrCodeNotFound,
		ErrCodeResourceExhausted,
		ErrCodeFailedPrecondition,
	} {
		t.Run(fmt.Sprintf("ClientError_%s", code), func(t *testing.T) {
			assert.True(t, code.IsClientError())
			assert.False(t, code.IsServerError())
		})
	}

	for _, code := range []StatusCode{ErrCodeInternal, ErrCodeUnavailable} {
		t.Run(fmt.Sprintf("ServerError_%s", code), func(t *testing.T) {
			assert.False(t, code.IsClientError())
			assert.True(t, code.IsServerError())
		})
	}
}

func TestStatusOf(t *testing.T) {
	errDecode := InvalidArgument("malformed payload").WithCode("ErrDecode")

	t.Run("direct status error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInvalidArgument, StatusOf(errDecode))
		assert.Equal(t, "ErrDecode", CodeOf(errDecode))
	})

	t.Run("wrapped status error", func(t *testing.T) {
		wrapped := fmt.Errorf("decode change: %w", errDecode)
		assert.Equal(t, ErrCodeInvalidArgument, StatusOf(wrapped))
		assert.True(t, IsStatus(wrapped, ErrCodeInvalidArgument))
		assert.True(t, Is(wrapped, errDecode))
		assert.Equal(t, "decode change: malformed payload", wrapped.Error())
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, StatusCode(0), StatusOf(fmt.Errorf("plain")))
		assert.Equal(t, StatusCode(0), StatusOf(nil))
		assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
	})
}

func TestStatusCode_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrCodeInvalidArgument.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrCodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, ErrCodeUnavailable.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, StatusCode(0).HTTPStatus())
}
