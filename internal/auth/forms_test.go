package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func formContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	ctx.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ctx
}

func TestBindSignup(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
		rule  Rule
	}{
		{"valid", url.Values{"name": {"alice"}, "email": {"a@x.com"}, "password": {"pw12345"}}, "", ""},
		{"missing name", url.Values{"email": {"a@x.com"}, "password": {"pw12345"}}, "name", RuleRequired},
		{"non alphanumeric name", url.Values{"name": {"al ice!"}, "email": {"a@x.com"}, "password": {"pw"}}, "name", RuleAlphanum},
		{"long name", url.Values{"name": {strings.Repeat("a", 21)}, "email": {"a@x.com"}, "password": {"pw"}}, "name", RuleMax},
		{"bad email", url.Values{"name": {"alice"}, "email": {"not-an-email"}, "password": {"pw"}}, "email", RuleEmail},
		{"long password", url.Values{"name": {"alice"}, "email": {"a@x.com"}, "password": {strings.Repeat("p", 21)}}, "password", RuleMax},
		{"missing password", url.Values{"name": {"alice"}, "email": {"a@x.com"}}, "password", RuleRequired},
		{"astral password over 20 utf16 units", url.Values{"name": {"alice"}, "email": {"a@x.com"}, "password": {strings.Repeat("😀", 11)}}, "password", RuleMax},
		{"unknown tld", url.Values{"name": {"alice"}, "email": {"a@x.notarealtld"}, "password": {"pw"}}, "email", RuleEmail},
		{"host without tld", url.Values{"name": {"alice"}, "email": {"alice@localhost"}, "password": {"pw"}}, "email", RuleEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := BindSignup(formContext(tt.form))
			if tt.rule == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.Name != "alice" || in.Email != "a@x.com" || in.Password != "pw12345" {
					t.Fatalf("unexpected input: %#v", in)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !verr.Has(tt.field, tt.rule) {
				t.Fatalf("expected %s/%s in %v", tt.field, tt.rule, verr)
			}
		})
	}
}

func TestBindSignupAcceptsTwentyCharacters(t *testing.T) {
	form := url.Values{
		"name":     {strings.Repeat("a", 20)},
		"email":    {"a@x.com"},
		"password": {strings.Repeat("p", 20)},
	}
	if _, err := BindSignup(formContext(form)); err != nil {
		t.Fatalf("20 characters should be accepted: %v", err)
	}
}

func TestBindSignupCountsPasswordInUTF16Units(t *testing.T) {
	// 10 文字のサロゲートペアは 20 単位、40 バイト
	form := url.Values{
		"name":     {"alice"},
		"email":    {"a@x.com"},
		"password": {strings.Repeat("😀", 10)},
	}
	in, err := BindSignup(formContext(form))
	if err != nil {
		t.Fatalf("20 utf16 units should be accepted: %v", err)
	}
	if utf16Len(in.Password) != 20 || len(in.Password) != 40 {
		t.Fatalf("unexpected password length: units=%d bytes=%d", utf16Len(in.Password), len(in.Password))
	}

	// 20 文字でもコード単位では 40 になる
	form.Set("password", strings.Repeat("😀", 20))
	_, err = BindSignup(formContext(form))
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("password", RuleMax) {
		t.Fatalf("expected password max violation, got %v", err)
	}
}

func TestBindLoginRejectsUnknownTLD(t *testing.T) {
	_, err := BindLogin(formContext(url.Values{"email": {"a@x.notarealtld"}, "password": {"pw"}}))
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("email", RuleEmail) {
		t.Fatalf("expected email rule violation, got %v", err)
	}

	if _, err := BindLogin(formContext(url.Values{"email": {"bob@mail.example.co.uk"}})); err != nil {
		t.Fatalf("multi-label public suffix should be accepted: %v", err)
	}
}

func TestBindLoginValidatesEmailOnly(t *testing.T) {
	in, err := BindLogin(formContext(url.Values{"email": {"a@x.com"}}))
	if err != nil {
		t.Fatalf("empty password must not fail validation: %v", err)
	}
	if in.Email != "a@x.com" || in.Password != "" {
		t.Fatalf("unexpected input: %#v", in)
	}

	_, err = BindLogin(formContext(url.Values{"email": {"nope"}, "password": {"pw"}}))
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("email", RuleEmail) {
		t.Fatalf("expected email rule violation, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{{Field: "name", Rule: RuleAlphanum}, {Rule: RuleMalformed}}}
	if got := err.Error(); got != "validation failed: name: alphanum, malformed" {
		t.Fatalf("unexpected message: %s", got)
	}
}
