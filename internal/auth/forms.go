package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/net/publicsuffix"
)

// Rule は入力検証で違反したルールです。
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleAlphanum  Rule = "alphanum"
	RuleMax       Rule = "max"
	RuleEmail     Rule = "email"
	RuleMalformed Rule = "malformed"
)

// FieldError はフィールド単位の検証エラーです。
type FieldError struct {
	Field string
	Rule  Rule
}

// ValidationError はフォーム入力の検証エラーです。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Field == "" {
			parts[i] = string(f.Rule)
			continue
		}
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has は field が rule に違反しているかを返します。
func (e *ValidationError) Has(field string, rule Rule) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Rule == rule {
			return true
		}
	}
	return false
}

// 独自の検証タグ
const (
	tagUTF16Max = "utf16max" // UTF-16 コード単位での最大長
	tagKnownTLD = "tld"      // ICANN に登録されたトップレベルドメイン
)

// SignupInput はサインアップフォームの入力です。
// パスワード長は UTF-16 単位で数えます。20 単位は UTF-8 で最大 60 バイトです。
type SignupInput struct {
	Name     string `form:"name" binding:"required,alphanum,max=20"`
	Email    string `form:"email" binding:"required,email,tld"`
	Password string `form:"password" binding:"required,utf16max=20"`
}

// LoginInput はログインフォームの入力です。パスワードは形式を検証しません。
type LoginInput struct {
	Email    string `form:"email" binding:"required,email,tld"`
	Password string `form:"password"`
}

var registerOnce sync.Once

// registerValidations は gin のバリデーターに独自タグを登録します。
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("auth: gin binding engine is not go-playground/validator")
		}
		if err := v.RegisterValidation(tagUTF16Max, validateUTF16Max); err != nil {
			panic(fmt.Sprintf("auth: register %s: %v", tagUTF16Max, err))
		}
		if err := v.RegisterValidation(tagKnownTLD, validateKnownTLD); err != nil {
			panic(fmt.Sprintf("auth: register %s: %v", tagKnownTLD, err))
		}
	})
}

func validateUTF16Max(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf16Len(fl.Field().String()) <= limit
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// validateKnownTLD はメールアドレスのドメインが ICANN 管理のサフィックスで終わるかを確認します。
func validateKnownTLD(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	domain := strings.TrimSuffix(strings.ToLower(addr[at+1:]), ".")
	if !strings.Contains(domain, ".") {
		return false
	}
	_, icann := publicsuffix.PublicSuffix(domain)
	return icann
}

// BindSignup はサインアップフォームを読み取り検証します。
func BindSignup(c *gin.Context) (SignupInput, error) {
	registerValidations()
	var in SignupInput
	if err := c.ShouldBind(&in); err != nil {
		return SignupInput{}, toValidationError(err)
	}
	return in, nil
}

// BindLogin はログインフォームを読み取り検証します。
func BindLogin(c *gin.Context) (LoginInput, error) {
	registerValidations()
	var in LoginInput
	if err := c.ShouldBind(&in); err != nil {
		return LoginInput{}, toValidationError(err)
	}
	return in, nil
}

func toValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Rule: RuleMalformed}}}
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		var rule Rule
		switch fe.Tag() {
		case string(RuleRequired), string(RuleAlphanum), string(RuleMax), string(RuleEmail):
			rule = Rule(fe.Tag())
		case tagUTF16Max:
			rule = RuleMax
		case tagKnownTLD:
			rule = RuleEmail
		default:
			rule = RuleMalformed
		}
		out.Fields = append(out.Fields, FieldError{
			Field: strings.ToLower(fe.Field()),
			Rule:  rule,
		})
	}
	return out
}
