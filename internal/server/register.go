package server

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"caseflow/internal"
	"caseflow/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

type registration struct {
	GivenName       string `form:"given_name" validate:"required,max=100"`
	FamilyName      string `form:"family_name" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,strong_password"`
	ConfirmPassword string `form:"confirm_password" validate:"eqfield=Password"`
}

var (
	registrationDecoder   = form.NewDecoder()
	registrationValidator = newRegistrationValidator()
)

func newRegistrationValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
	})
	_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})
	return v
}

// strongPassword mirrors the user pool policy: 12+ characters with upper,
// lower, digit and symbol.
func strongPassword(pw string) bool {
	if len(pw) < 12 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func validateRegistration(reg registration) map[string]string {
	errs := map[string]string{}

	err := registrationValidator.Struct(reg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs
	}

	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			errs[fe.Field()] = "This field is required."
		case "email":
			errs[fe.Field()] = "Enter a valid email address."
		case "strong_password":
			errs[fe.Field()] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
		case "eqfield":
			errs[fe.Field()] = "Passwords do not match."
		default:
			errs[fe.Field()] = "This value is not valid."
		}
	}

	return errs
}

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	_, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err == nil {
		http.Redirect(w, r, "/cases", http.StatusSeeOther)
		return
	}

	data := &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: "Create account"},
	}

	if err := s.renderTemplate(w, r, "page.register", data); err != nil {
		s.logger.WithError(err).Error("failed to render register page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var reg registration
	if err := registrationDecoder.Decode(&reg, r.PostForm); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	reg.GivenName = strings.TrimSpace(reg.GivenName)
	reg.FamilyName = strings.TrimSpace(reg.FamilyName)
	reg.Email = strings.TrimSpace(reg.Email)

	data := &types.RegisterPageData{
		BasePageData: types.BasePageData{Title: "Create account"},
		GivenName:    reg.GivenName,
		FamilyName:   reg.FamilyName,
		Email:        reg.Email,
	}

	data.FieldErrors = validateRegistration(reg)
	if len(data.FieldErrors) > 0 {
		data.Error = "Please fix the highlighted fields."
		if err := s.renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "page.register", data); err != nil {
			s.logger.WithError(err).Error("failed to render register page with validation errors")
		}
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(reg.Email),
		Password: aws.String(reg.Password),
		UserAttributes: []cognitotypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(reg.Email)},
			{Name: aws.String("given_name"), Value: aws.String(reg.GivenName)},
			{Name: aws.String("family_name"), Value: aws.String(reg.FamilyName)},
		},
	}

	if _, err := s.auth.SignUp(ctx, input); err != nil {
		data.Error, data.FieldErrors = s.mapCognitoSignUpError(err)
		if err := s.renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "page.register", data); err != nil {
			s.logger.WithError(err).Error("failed to render register page with cognito errors")
		}
		return
	}

	v := url.Values{}
	v.Set("email", reg.Email)
	http.Redirect(w, r, "/register/confirm?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) handleGetRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm your account"},
		Email:        strings.TrimSpace(r.URL.Query().Get("email")),
	}

	if err := s.renderTemplate(w, r, "page.register.confirm", data); err != nil {
		s.logger.WithError(err).Error("failed to render register confirm page")
		s.internalServerError(w)
		return
	}
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	code := strings.TrimSpace(r.FormValue("code"))

	data := &types.ConfirmRegisterPageData{
		BasePageData: types.BasePageData{Title: "Confirm your account"},
		Email:        email,
	}

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	}

	if _, err := s.auth.ConfirmSignUp(r.Context(), input); err != nil {
		s.logger.WithError(err).Info("failed to confirm user signup")

		var codeMismatch *cognitotypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			data.Error = "Invalid confirmation code. Please check the code and try again."
		} else {
			data.Error = "Unable to confirm account. Please try again."
		}

		if err := s.renderTemplateStatus(w, r, http.StatusUnprocessableEntity, "page.register.confirm", data); err != nil {
			s.logger.WithError(err).Error("failed to render register confirm page with error")
		}
		return
	}

	http.Redirect(w, r, "/login?confirmed=true", http.StatusSeeOther)
}

func (s *Service) mapCognitoSignUpError(err error) (string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *cognitotypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *cognitotypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return "Try signing in instead.", fieldErrs
	}

	var invalidParam *cognitotypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return "Unable to create account right now. Please try again.", fieldErrs
}
