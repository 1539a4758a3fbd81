package httpserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/auth"
	"github.com/dmitrijs2005/usersecrets/internal/server/metrics"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/users"
	"github.com/dmitrijs2005/usersecrets/internal/server/services"
	"github.com/dmitrijs2005/usersecrets/internal/server/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBroker stands in for the OAuth provider round trip. Begin hands out
// sequential states; Complete accepts only states it issued.
type fakeBroker struct {
	repo    users.Repository
	issued  map[string]bool
	next    int
	subject string
}

func (b *fakeBroker) Begin(context.Context) (string, string, error) {
	b.next++
	state := "state-" + strconv.Itoa(b.next)
	b.issued[state] = true
	return state, "https://provider.example/auth?state=" + state, nil
}

func (b *fakeBroker) Complete(ctx context.Context, state, code, providerError string) (*models.User, error) {
	ok := b.issued[state]
	delete(b.issued, state)
	if providerError != "" || !ok || code == "" {
		return nil, common.ErrProviderAuth
	}
	return b.repo.FindOrCreateByExternalID(ctx, b.subject)
}

type harnessOpts struct {
	repos          repomanager.RepositoryManager
	logOut         io.Writer
	noOAuth        bool
	allowedOrigins []string
}

type harness struct {
	t        *testing.T
	srv      *httptest.Server
	repos    repomanager.RepositoryManager
	sessions *sessions.Manager
	metrics  *metrics.Metrics
	broker   *fakeBroker
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	repos := opts.repos
	if repos == nil {
		repos = repomanager.NewMemoryRepositoryManager()
	}
	var logger logging.Logger = logging.NewNop()
	if opts.logOut != nil {
		logger = logging.New(opts.logOut, "debug")
	}

	us, err := services.NewUserService(repos, auth.NewBcryptHasher(bcrypt.MinCost), logger)
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	sm := sessions.NewManager(sessions.NewMemoryStore(), []byte("test-secret"), time.Hour, logger)
	m := metrics.New()

	broker := &fakeBroker{repo: repos.Users(), issued: map[string]bool{}, subject: "google-42"}
	var external services.Strategy
	if !opts.noOAuth {
		external = services.NewOAuth2Strategy("google", broker)
	}

	h := NewHandler(Deps{
		Users:    us,
		Secrets:  services.NewSecretService(repos, logger),
		Local:    services.NewLocalStrategy(us),
		External: external,
		Sessions: sm,
		Repos:    repos,
		Metrics:  m,
		Logger:   logger,
	})

	s, err := NewHTTPServer(Options{AllowedOrigins: opts.allowedOrigins}, h, logger)
	if err != nil {
		t.Fatalf("NewHTTPServer: %v", err)
	}

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &harness{t: t, srv: srv, repos: repos, sessions: sm, metrics: m, broker: broker}
}

// browser is a client with its own cookie jar that does not follow redirects.
type browser struct {
	h      *harness
	client *http.Client
}

func (h *harness) browser() *browser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		h.t.Fatalf("cookiejar: %v", err)
	}
	return &browser{h: h, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type response struct {
	Status   int
	Location string
	Body     string
	Cookies  []*http.Cookie
}

func (b *browser) do(req *http.Request) response {
	b.h.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.h.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return response{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Body:     string(body),
		Cookies:  resp.Cookies(),
	}
}

func (b *browser) get(path string) response {
	b.h.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.h.srv.URL+path, nil)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values, headers ...string) response {
	b.h.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.h.srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return b.do(req)
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.h.srv.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) setCookie(name, value string) {
	u, _ := url.Parse(b.h.srv.URL)
	b.client.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

func (b *browser) register(user, pass string) response {
	b.h.t.Helper()
	return b.post("/register", url.Values{"username": {user}, "password": {pass}})
}

func (b *browser) login(user, pass string) response {
	b.h.t.Helper()
	return b.post("/login", url.Values{"username": {user}, "password": {pass}})
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// failingUsers makes every secret listing fail.
type failingUsers struct {
	users.Repository
}

func (failingUsers) ListSecrets(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

// brokenCreateUsers makes every insert fail as if the database were down.
type brokenCreateUsers struct {
	users.Repository
}

func (brokenCreateUsers) Create(context.Context, *models.User) (*models.User, error) {
	return nil, errors.New("db error: connection refused")
}

type failingRepos struct {
	*repomanager.MemoryRepositoryManager
	users users.Repository
	ping  error
}

func (f *failingRepos) Users() users.Repository   { return f.users }
func (f *failingRepos) Ping(context.Context) error { return f.ping }

func newFailingRepos() *failingRepos {
	mem := repomanager.NewMemoryRepositoryManager()
	return &failingRepos{
		MemoryRepositoryManager: mem,
		users:                   failingUsers{Repository: mem.Users()},
		ping:                    errors.New("db down"),
	}
}

func newBrokenCreateRepos() *failingRepos {
	mem := repomanager.NewMemoryRepositoryManager()
	return &failingRepos{
		MemoryRepositoryManager: mem,
		users:                   brokenCreateUsers{Repository: mem.Users()},
	}
}

// lockedBuffer collects log output written from server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
