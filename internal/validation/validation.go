/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
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

// Package validation provides the validation functions for user-provided
// values such as configuration and invitation fields.
package validation

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// defaultValidator is the default validation instance used in this
	// package. Some fields are provided by the user and need validation.
	defaultValidator = validator.New()

	// defaultEn is the default translator instance for the 'en' locale.
	defaultEn = en.New()

	// uni is the UniversalTranslator instance set with the default translator.
	uni = ut.New(defaultEn, defaultEn)

	// trans is the translator for the 'en' locale.
	trans, _ = uni.GetTranslator(defaultEn.Locale())
)

func init() {
	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		fmt.Fprintln(os.Stderr, "validation: register default translations:", err)
		os.Exit(1)
	}
}

// FormError is an error returned when validation of a struct fails. It holds
// a violation message per offending field.
type FormError struct {
	Violations []Violation
}

// Error returns the error message.
func (e *FormError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid form"
	}
	return e.Violations[0].Description
}

// Violation is a description of a single field violation.
type Violation struct {
	Field       string
	Description string
}

// ValidateStruct validates the given struct against its validate tags.
func ValidateStruct(s interface{}) error {
	if err := defaultValidator.Struct(s); err != nil {
		invalidErr := &validator.InvalidValidationError{}
		if errors.As(err, &invalidErr) {
			return fmt.Errorf("validate struct: %w", err)
		}

		formErr := &FormError{}
		for _, e := range err.(validator.ValidationErrors) {
			formErr.Violations = append(formErr.Violations, Violation{
				Field:       e.Field(),
				Description: e.Translate(trans),
			})
		}
		return formErr
	}

	return nil
}

// RegisterValidation registers a custom validation with the given tag.
func RegisterValidation(tag string, fn validator.Func) {
	if err := defaultValidator.RegisterValidation(tag, fn); err != nil {
		fmt.Fprintln(os.Stderr, "validation: register validation:", err)
		os.Exit(1)
	}
}

// RegisterTranslation registers a custom translation for the given tag.
func RegisterTranslation(tag, msg string) {
	if err := defaultValidator.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	); err != nil {
		fmt.Fprintln(os.Stderr, "validation: register translation:", err)
		os.Exit(1)
	}
}
