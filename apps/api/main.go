package main

import (
	"context"
	"log"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/madrasa-app/madrasa/apps/api/echo"
	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/school"
	"github.com/madrasa-app/madrasa/core/session"
	"github.com/madrasa-app/madrasa/core/user"
	emailsvc "github.com/madrasa-app/madrasa/services/email"
	logsvc "github.com/madrasa-app/madrasa/services/logger"
	"github.com/madrasa-app/madrasa/storage"
	filestore "github.com/madrasa-app/madrasa/storage/file"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
	pgstore "github.com/madrasa-app/madrasa/storage/postgres"
	redistore "github.com/madrasa-app/madrasa/storage/redis"
)

func main() {
	std := log.New(os.Stderr, "API : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up storage
	backend, err := openBackend()
	errAndDie(std, err)
	defer backend.Close()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(user.NewStoreRepository(backend, logger))
	errAndDie(std, user.Seed(usrSvc, user.DefaultAccounts()))

	registry := school.NewRegistry(backend, logger)
	errAndDie(std, school.SeedDemo(registry))

	sessions := session.NewManager(usrSvc, backend, logger)
	defer sessions.Close()

	admissions := school.NewAdmissionService(registry, mailSvc, logger)
	notices := school.NewNoticeService(mailSvc, noticeRecipients(usrSvc), logger)
	reports := school.NewReports(registry)
	defer reports.Close()

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:       core.Conf.Server.Addr,
		Logger:     logger,
		UserSvc:    usrSvc,
		Sessions:   sessions,
		Registry:   registry,
		Admissions: admissions,
		Notices:    notices,
		Reports:    reports,
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err = <-errCh:
		errAndDie(std, err)
	case <-done:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errAndDie(std, app.Stop(ctx))
	}
}

// noticeRecipients resolves a notice audience to the active accounts holding
// the matching role.
func noticeRecipients(usrSvc *user.Service) func(string) []mail.Address {
	roleFor := map[string]string{
		school.AudienceStudents: user.RoleStudent,
		school.AudienceTeachers: user.RoleTeacher,
		school.AudienceParents:  user.RoleParent,
	}
	return func(audience string) []mail.Address {
		usrs, err := usrSvc.QueryAll()
		if err != nil {
			return nil
		}
		role, restricted := roleFor[audience]
		var to []mail.Address
		for _, usr := range usrs {
			if !usr.IsActive || usr.Email == "" {
				continue
			}
			if restricted && usr.Role != role {
				continue
			}
			to = append(to, mail.Address{Name: usr.Name, Address: usr.Email})
		}
		return to
	}
}

func openBackend() (storage.Backend, error) {
	switch core.Conf.Storage.Backend {
	case "file":
		return filestore.New(core.Conf.Storage.FileDir)
	case "redis":
		return redistore.New(core.Conf.Storage.RedisAddr, core.Conf.Storage.RedisDB)
	case "postgres":
		if err := pgstore.Migrate(core.Conf.Storage.DatabaseURL); err != nil {
			return nil, err
		}
		return pgstore.New(core.Conf.Storage.DatabaseURL)
	default:
		return memstore.New(), nil
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
