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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		err := ValidateValue("#1e90ff", "color")
		assert.Nil(t, err, "valid color")

		err = ValidateValue("#abc", "color")
		assert.Nil(t, err, "valid short color")

		err = ValidateValue("blue", "color")
		assert.Equal(t, "color", err.(Violation).Tag)
	})

	t.Run("ValidateDocID test", func(t *testing.T) {
		assert.NoError(t, ValidateDocID("Valid-Doc_Key.1~"))
		assert.NoError(t, ValidateDocID("65f0c3a2b1e4d5f6a7b8c9d0"))

		err := ValidateDocID("")
		assert.Equal(t, "required", err.(Violation).Tag)

		err = ValidateDocID("invalid doc key")
		assert.Equal(t, "doc_id", err.(Violation).Tag)

		err = ValidateDocID("../escape")
		assert.Equal(t, "doc_id", err.(Violation).Tag)

		tooLong := make([]byte, 121)
		for i := range tooLong {
			tooLong[i] = 'a'
		}
		err = ValidateDocID(string(tooLong))
		assert.Equal(t, "doc_id", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type User struct {
			Name  string `validate:"required,max=8"`
			Color string `validate:"omitempty,color"`
		}

		err := ValidateStruct(User{Name: "a-very-long-name", Color: "red"})
		structError := err.(*StructError)
		assert.Len(t, structError.Violations, 2, "user should be invalid")

		assert.NoError(t, ValidateStruct(User{Name: "alice"}))
	})

	t.Run("custom rule test", func(t *testing.T) {
		_ = RegisterValidation("custom", func(v FieldLevel) bool {
			return v.Field().String() == "custom"
		})
		_ = RegisterTranslation("custom", "{0} must be custom")

		err := ValidateValue("custom-invalid-value", "required,custom")
		assert.Equal(t, "custom", err.(Violation).Tag)
		assert.NoError(t, ValidateValue("custom", "required,custom"))
	})
}
