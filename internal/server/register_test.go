package server

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() url.Values {
	return url.Values{
		"given_name":       {"Amina"},
		"family_name":      {"Diallo"},
		"email":            {" amina@example.com "},
		"password":         {"Correct-Horse-9"},
		"confirm_password": {"Correct-Horse-9"},
	}
}

func TestStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"short-A1":           false,
		"alllowercase-123":   false,
		"ALLUPPERCASE-123":   false,
		"NoDigitsHere-abc":   false,
		"NoSymbols12345abc":  false,
		"Correct-Horse-9":    true,
		"Ünïcode-Pass-2024!": true,
	}
	for pw, want := range cases {
		assert.Equal(t, want, strongPassword(pw), pw)
	}
}

func TestValidateRegistration(t *testing.T) {
	errs := validateRegistration(registration{
		Email:           "not-an-email",
		Password:        "weak",
		ConfirmPassword: "different",
	})

	assert.Equal(t, "This field is required.", errs["given_name"])
	assert.Equal(t, "This field is required.", errs["family_name"])
	assert.Equal(t, "Enter a valid email address.", errs["email"])
	assert.Contains(t, errs["password"], "at least 12 characters")
	assert.Equal(t, "Passwords do not match.", errs["confirm_password"])

	assert.Empty(t, validateRegistration(registration{
		GivenName:       "Amina",
		FamilyName:      "Diallo",
		Email:           "amina@example.com",
		Password:        "Correct-Horse-9",
		ConfirmPassword: "Correct-Horse-9",
	}))
}

func TestRegisterPage(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/register", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Create account")
}

func TestRegisterSignsUpAndRedirectsToConfirm(t *testing.T) {
	h := newHarness(t)

	rec := h.postForm("/register", validRegistration(), "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/register/confirm?email=amina%40example.com", rec.Header().Get("Location"))

	require.Len(t, h.auth.signUps, 1)
	input := h.auth.signUps[0]
	assert.Equal(t, "client", aws.ToString(input.ClientId))
	assert.Equal(t, "amina@example.com", aws.ToString(input.Username))

	attrs := map[string]string{}
	for _, a := range input.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	assert.Equal(t, map[string]string{
		"email":       "amina@example.com",
		"given_name":  "Amina",
		"family_name": "Diallo",
	}, attrs)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)

	values := validRegistration()
	values.Set("confirm_password", "Something-Else-1")

	rec := h.postForm("/register", values, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match.")
	assert.Contains(t, rec.Body.String(), `value="Amina"`)
	assert.Empty(t, h.auth.signUps)
}

func TestRegisterMapsExistingUser(t *testing.T) {
	h := newHarness(t)
	h.auth.signUpErr = &cognitotypes.UsernameExistsException{Message: aws.String("exists")}

	rec := h.postForm("/register", validRegistration(), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "An account with this email already exists.")
}

func TestRegisterConfirm(t *testing.T) {
	h := newHarness(t)

	rec := h.get("/register/confirm?email=amina%40example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "amina@example.com")

	rec = h.postForm("/register/confirm", url.Values{"email": {"amina@example.com"}, "code": {"123456"}}, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?confirmed=true", rec.Header().Get("Location"))

	require.Len(t, h.auth.confirms, 1)
	assert.Equal(t, "123456", aws.ToString(h.auth.confirms[0].ConfirmationCode))

	rec = h.get("/login?confirmed=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your account is confirmed.")
}

func TestRegisterConfirmCodeMismatch(t *testing.T) {
	h := newHarness(t)
	h.auth.confirmErr = &cognitotypes.CodeMismatchException{Message: aws.String("mismatch")}

	rec := h.postForm("/register/confirm", url.Values{"email": {"amina@example.com"}, "code": {"000000"}}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid confirmation code.")
}
