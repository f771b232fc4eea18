package school

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
)

var (
	ErrApplicationNotFound = errors.New("admission application not found")
	ErrAlreadyDecided      = errors.New("admission application already decided")
)

// AdmissionService handles the application lifecycle: submitted applications
// start pending; a decision moves them to approved or rejected exactly once.
// Approval enrolls the applicant as a Student and both outcomes notify the
// applicant by email when an address is on file.
type AdmissionService struct {
	reg     *Registry
	mail    core.EmailService
	log     core.Logger
	nowFunc func() time.Time // mockable
}

func NewAdmissionService(reg *Registry, mailSvc core.EmailService, log core.Logger) *AdmissionService {
	if log == nil {
		log = core.NopLogger{}
	}
	return &AdmissionService{reg: reg, mail: mailSvc, log: log, nowFunc: time.Now}
}

// Submit validates and stores a new pending application.
func (svc *AdmissionService) Submit(app AdmissionApplication) (AdmissionApplication, error) {
	app.ApplicantName = core.CleanString(app.ApplicantName)
	app.AppliedClass = core.CleanString(app.AppliedClass)
	app.Email = core.CleanString(app.Email, true /* lower */)
	if err := core.Validate.Struct(app); err != nil {
		return AdmissionApplication{}, err
	}

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	app.Status = AdmissionPending
	app.SubmittedAt = svc.nowFunc().UTC()
	app.DecidedAt = time.Time{}

	if !svc.reg.Admissions.Add(app) {
		return AdmissionApplication{}, errors.New("persisting admission application")
	}
	return app, nil
}

// Decide approves or rejects a pending application.
func (svc *AdmissionService) Decide(id string, approve bool, note string) (AdmissionApplication, error) {
	app, ok := svc.reg.Admissions.GetByID(id)
	if !ok {
		return AdmissionApplication{}, ErrApplicationNotFound
	}
	if app.Status != AdmissionPending {
		return AdmissionApplication{}, ErrAlreadyDecided
	}

	now := svc.nowFunc().UTC()
	app.Status = AdmissionRejected
	if approve {
		app.Status = AdmissionApproved
	}
	app.Note = note
	app.DecidedAt = now

	if !svc.reg.Admissions.Update(app.ID, func(AdmissionApplication) AdmissionApplication { return app }) {
		return AdmissionApplication{}, errors.New("persisting admission decision")
	}

	if approve {
		svc.enroll(app, now)
	}
	svc.notify(app)
	return app, nil
}

func (svc *AdmissionService) enroll(app AdmissionApplication, now time.Time) {
	student := Student{
		ID:          uuid.New().String(),
		AdmissionNo: fmt.Sprintf("ADM-%s", app.ID[:8]),
		Name:        app.ApplicantName,
		Class:       app.AppliedClass,
		Guardian:    app.GuardianName,
		Phone:       app.Phone,
		Email:       app.Email,
		EnrolledAt:  now,
	}
	if !svc.reg.Students.Add(student) {
		svc.log.Error("enrolling approved applicant " + app.ID)
	}
}

func (svc *AdmissionService) notify(app AdmissionApplication) {
	if svc.mail == nil || app.Email == "" {
		return
	}
	body := fmt.Sprintf(
		"Assalamu alaikum %s,\n\nYour admission application for %s has been %s.",
		app.ApplicantName, app.AppliedClass, app.Status,
	)
	if app.Note != "" {
		body += "\n\nNote: " + app.Note
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: app.ApplicantName, Address: app.Email}},
		Subject: "Admission decision",
		BodyStr: body,
	})
}
