package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"caseflow/internal/intake"
	"caseflow/internal/utils"
	"caseflow/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS

// Authenticator exchanges credentials for tokens; *cognitoidentityprovider.Client satisfies it.
type Authenticator interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

type CaseReader interface {
	CasesByUser(ctx context.Context, userID string) ([]*types.Case, error)
	CaseByUserAndID(ctx context.Context, userID, caseID string) (*types.Case, error)
}

type DocumentReader interface {
	DocumentsByCaseID(ctx context.Context, caseID string) ([]types.CaseDocument, error)
	DocumentsByCaseIDs(ctx context.Context, caseIDs []string) (map[string][]types.CaseDocument, error)
}

type HistoryReader interface {
	HistoryByCaseID(ctx context.Context, caseID string) ([]*types.HistoryEntry, error)
}

type ResidencyReader interface {
	ResidencyByCaseID(ctx context.Context, caseID string) (*types.ResidencyDetails, error)
	FamilyMembers(ctx context.Context, residencyDetailsID string) ([]*types.FamilyMember, error)
}

type FlightReader interface {
	FlightByCaseID(ctx context.Context, caseID string) (*types.FlightDetails, error)
}

// DraftStore persists intake sessions between requests.
type DraftStore interface {
	Create(ctx context.Context, userID string) (intake.SessionState, error)
	Save(ctx context.Context, state intake.SessionState) error
	Get(ctx context.Context, userID, id string) (intake.SessionState, error)
	Active(ctx context.Context, userID string) (intake.SessionState, error)
	Delete(ctx context.Context, userID, id string) error
	AcquireSubmit(ctx context.Context, id string, ttl time.Duration) (bool, error)
	ReleaseSubmit(ctx context.Context, id string) error
}

// AttachmentSpool is the staging area for files attached to drafts.
type AttachmentSpool interface {
	intake.Spool
	RemoveDraft(draftID string) error
}

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	Authenticator Authenticator
	Verifier      TokenVerifier

	Cases        CaseReader
	Documents    DocumentReader
	History      HistoryReader
	Residency    ResidencyReader
	Flights      FlightReader
	Requirements intake.RequirementSource

	Drafts    DraftStore
	Spool     AttachmentSpool
	Submitter *intake.Submitter
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template
	cookie    *securecookie.SecureCookie

	auth     Authenticator
	verifier TokenVerifier

	cases        CaseReader
	documents    DocumentReader
	history      HistoryReader
	residency    ResidencyReader
	flights      FlightReader
	requirements intake.RequirementSource

	drafts    DraftStore
	spool     AttachmentSpool
	submitter *intake.Submitter

	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Dependencies) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}

	s := &Service{
		logger: logger,
		config: config,
		cookie: securecookie.New(hashKey, blockKey),

		auth:     deps.Authenticator,
		verifier: deps.Verifier,

		cases:        deps.Cases,
		documents:    deps.Documents,
		history:      deps.History,
		residency:    deps.Residency,
		flights:      deps.Flights,
		requirements: deps.Requirements,

		drafts:    deps.Drafts,
		spool:     deps.Spool,
		submitter: deps.Submitter,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/cases", s.handleGetCases, http.MethodGet)
		r.HandleFunc("/cases/:caseID", s.handleGetCase, http.MethodGet)

		r.HandleFunc("/applications", s.handlePostApplication, http.MethodPost)
		r.HandleFunc("/applications/:draftID", s.handleGetApplication, http.MethodGet)
		r.HandleFunc("/applications/:draftID/step/:step", s.handleGetApplicationStep, http.MethodGet)
		r.HandleFunc("/applications/:draftID/next", s.handlePostApplicationNext, http.MethodPost)
		r.HandleFunc("/applications/:draftID/back", s.handlePostApplicationBack, http.MethodPost)
		r.HandleFunc("/applications/:draftID/category", s.handlePostApplicationCategory, http.MethodPost)
		r.HandleFunc("/applications/:draftID/documents", s.handlePostApplicationDocument, http.MethodPost)
		r.HandleFunc("/applications/:draftID/documents/:documentTypeID/delete", s.handlePostApplicationDocumentDelete, http.MethodPost)
		r.HandleFunc("/applications/:draftID/submit", s.handlePostApplicationSubmit, http.MethodPost)
		r.HandleFunc("/applications/:draftID/discard", s.handlePostApplicationDiscard, http.MethodPost)
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil || *s == "" {
				return defaultVal
			}
			return *s
		},
		"date": utils.FormatDate,
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"add": func(a, b int) int {
			return a + b
		},
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"child": func(children []intake.Child, i int) intake.Child {
			if i < 0 || i >= len(children) {
				return intake.Child{}
			}
			return children[i]
		},
		"kb": func(n int64) int64 {
			return (n + 1023) / 1024
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
