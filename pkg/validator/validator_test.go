package validator

import (
	"testing"
)

func TestNew(t *testing.T) {
	v := New()
	if v == nil {
		t.Fatal("expected validator to be created")
	}
	if v.validate == nil {
		t.Fatal("expected internal validator to be initialized")
	}
}

func TestValidate_RequiredField(t *testing.T) {
	v := New()

	type TestStruct struct {
		Name string `validate:"required"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - name provided", input: TestStruct{Name: "test"}, wantErr: false},
		{name: "invalid - name empty", input: TestStruct{Name: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	v := New()

	type TestStruct struct {
		Slug string `validate:"required,slug"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - simple", input: TestStruct{Slug: "acme"}, wantErr: false},
		{name: "valid - hyphenated", input: TestStruct{Slug: "acme-corp"}, wantErr: false},
		{name: "valid - with numbers", input: TestStruct{Slug: "team123"}, wantErr: false},
		{name: "invalid - uppercase", input: TestStruct{Slug: "Acme"}, wantErr: true},
		{name: "invalid - leading hyphen", input: TestStruct{Slug: "-acme"}, wantErr: true},
		{name: "invalid - trailing hyphen", input: TestStruct{Slug: "acme-"}, wantErr: true},
		{name: "invalid - consecutive hyphens", input: TestStruct{Slug: "acme--corp"}, wantErr: true},
		{name: "invalid - spaces", input: TestStruct{Slug: "acme corp"}, wantErr: true},
		{name: "invalid - empty", input: TestStruct{Slug: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTenantRole(t *testing.T) {
	v := New()

	type TestStruct struct {
		Role string `validate:"required,tenant_role"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - OWNER", input: TestStruct{Role: "OWNER"}, wantErr: false},
		{name: "valid - ADMIN", input: TestStruct{Role: "ADMIN"}, wantErr: false},
		{name: "valid - MEMBER", input: TestStruct{Role: "MEMBER"}, wantErr: false},
		{name: "invalid - lowercase", input: TestStruct{Role: "admin"}, wantErr: true},
		{name: "invalid - unknown", input: TestStruct{Role: "SUPERUSER"}, wantErr: true},
		{name: "invalid - empty", input: TestStruct{Role: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInvitableRole(t *testing.T) {
	v := New()

	type TestStruct struct {
		Role string `validate:"required,invitable_role"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - ADMIN", input: TestStruct{Role: "ADMIN"}, wantErr: false},
		{name: "valid - MEMBER", input: TestStruct{Role: "MEMBER"}, wantErr: false},
		{name: "invalid - OWNER not invitable", input: TestStruct{Role: "OWNER"}, wantErr: true},
		{name: "invalid - unknown", input: TestStruct{Role: "VIEWER"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePermission(t *testing.T) {
	v := New()

	type TestStruct struct {
		Permission string `validate:"required,permission"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - INVITE_MEMBERS", input: TestStruct{Permission: "INVITE_MEMBERS"}, wantErr: false},
		{name: "valid - SEND_MESSAGES", input: TestStruct{Permission: "SEND_MESSAGES"}, wantErr: false},
		{name: "invalid - unknown", input: TestStruct{Permission: "DELETE_EVERYTHING"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlackTs(t *testing.T) {
	v := New()

	type TestStruct struct {
		Ts string `validate:"required,slack_ts"`
	}

	tests := []struct {
		name    string
		input   TestStruct
		wantErr bool
	}{
		{name: "valid - message ts", input: TestStruct{Ts: "1718291000.000100"}, wantErr: false},
		{name: "invalid - no fraction", input: TestStruct{Ts: "1718291000"}, wantErr: true},
		{name: "invalid - not numeric", input: TestStruct{Ts: "abc.def"}, wantErr: true},
		{name: "invalid - empty", input: TestStruct{Ts: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ErrorMessages(t *testing.T) {
	v := New()

	type TestStruct struct {
		TeamSlug string `validate:"required,slug"`
	}

	err := v.Validate(TestStruct{TeamSlug: "Bad Slug"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(verrs))
	}
	if verrs[0].Field != "team_slug" {
		t.Errorf("expected snake_case field name, got %q", verrs[0].Field)
	}
}
