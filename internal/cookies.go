package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "caseflow_access_token"
	COOKIE_REDIRECT_NAME     = "caseflow_redirect"
)
