package echoapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/session"
	"github.com/madrasa-app/madrasa/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Logger     core.Logger
		UserSvc    *user.Service
		Sessions   *session.Manager
		Registry   *school.Registry
		Admissions *school.AdmissionService
		Notices    *school.NoticeService
		Reports    *school.Reports
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo

		shutdown     chan struct{}
		shutdownOnce sync.Once
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts)
	registerSchoolAPI(v1, jwt, s.opts)
}

// signalShutdown is handed to the error handler so an unrecoverable fault
// can gracefully stop the server.
func (s *server) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *server) Start() error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Start(s.opts.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-s.shutdown:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Madrasa API!")
}
