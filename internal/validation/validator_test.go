// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package validation

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type upstream struct {
	ID      string `validate:"required"`
	BaseURL string `validate:"required,url"`
}

type testConfig struct {
	Mode      string     `validate:"oneof=batch sequential"`
	Workers   int        `validate:"gte=1,lte=64"`
	MaxMemory string     `validate:"omitempty,bytesize"`
	Name      string     `validate:"omitempty,min=3"`
	Upstreams []upstream `validate:"dive"`
}

func validConfig() testConfig {
	return testConfig{
		Mode:      "batch",
		Workers:   5,
		MaxMemory: "1GB",
		Upstreams: []upstream{{ID: "a", BaseURL: "http://a.example"}},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := ValidateStruct(&cfg); err != nil {
		t.Errorf("ValidateStruct() = %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*testConfig)
		wantPath string
		wantTag  string
		wantMsg  string
	}{
		{
			name:     "mode outside set",
			mutate:   func(c *testConfig) { c.Mode = "parallel" },
			wantPath: "Mode",
			wantTag:  "oneof",
			wantMsg:  "Mode must be one of: batch sequential",
		},
		{
			name:     "too many workers",
			mutate:   func(c *testConfig) { c.Workers = 65 },
			wantPath: "Workers",
			wantTag:  "lte",
			wantMsg:  "Workers must be less than or equal to 64",
		},
		{
			name:     "bad size",
			mutate:   func(c *testConfig) { c.MaxMemory = "lots" },
			wantPath: "MaxMemory",
			wantTag:  "bytesize",
			wantMsg:  "MaxMemory must be a size such as 512MB or 2GB",
		},
		{
			name:     "short string",
			mutate:   func(c *testConfig) { c.Name = "ab" },
			wantPath: "Name",
			wantTag:  "min",
			wantMsg:  "Name must be at least 3 characters",
		},
		{
			name:     "nested url",
			mutate:   func(c *testConfig) { c.Upstreams = append(c.Upstreams, upstream{ID: "b", BaseURL: "not a url"}) },
			wantPath: "Upstreams[1].BaseURL",
			wantTag:  "url",
			wantMsg:  "Upstreams[1].BaseURL must be a valid URL",
		},
		{
			name:     "nested required",
			mutate:   func(c *testConfig) { c.Upstreams[0].ID = "" },
			wantPath: "Upstreams[0].ID",
			wantTag:  "required",
			wantMsg:  "Upstreams[0].ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateStruct(&cfg)
			if err == nil {
				t.Fatal("ValidateStruct() returned nil")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("Errors() = %v, want exactly one", errs)
			}
			got := errs[0]
			if got.Path() != tt.wantPath || got.Tag() != tt.wantTag {
				t.Errorf("error at %s/%s, want %s/%s", got.Path(), got.Tag(), tt.wantPath, tt.wantTag)
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Error(), tt.wantMsg)
			}
		})
	}
}

func TestByteSizeValidator(t *testing.T) {
	t.Parallel()

	type sized struct {
		Size string `validate:"bytesize"`
	}
	for _, tt := range []struct {
		in   string
		want bool
	}{
		{"1GB", true},
		{"512mb", true},
		{"1.5 GiB", true},
		{"100B", true},
		{"", false},
		{"GB", false},
		{"12 parsecs", false},
		{"-1GB", false},
	} {
		s := sized{Size: tt.in}
		got := ValidateStruct(&s) == nil
		if got != tt.want {
			t.Errorf("bytesize(%q) valid = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	t.Run("single", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Mode = "x"
		apiErr := ValidateStruct(&cfg).ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Details["field"] != "Mode" || apiErr.Details["tag"] != "oneof" {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Mode = "x"
		cfg.Workers = 0
		apiErr := ValidateStruct(&cfg).ToAPIError()
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 2 {
			t.Fatalf("Details = %v, want two fields", apiErr.Details)
		}
		if !strings.Contains(apiErr.Message, "Mode") || !strings.Contains(apiErr.Message, "Workers") {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestRequestValidationError_Error(t *testing.T) {
	t.Parallel()

	if got := (&RequestValidationError{}).Error(); got != "validation failed" {
		t.Errorf("Error() = %q", got)
	}
	cfg := validConfig()
	cfg.Mode = ""
	cfg.Workers = 0
	msg := ValidateStruct(&cfg).Error()
	if !strings.Contains(msg, "; ") {
		t.Errorf("Error() = %q, want joined messages", msg)
	}
}

func TestMustRegister(t *testing.T) {
	t.Parallel()

	v := validator.New()
	mustRegister(v, "always", func(validator.FieldLevel) bool { return true })
	if err := v.Var("anything", "always"); err != nil {
		t.Errorf("Var() with registered tag error = %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("mustRegister with an empty tag did not panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "register") {
			t.Errorf("panic = %v", r)
		}
	}()
	mustRegister(v, "", func(validator.FieldLevel) bool { return true })
}
