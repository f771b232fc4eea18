package school

import (
	"strings"
	"testing"
	"time"

	emailsvc "github.com/madrasa-app/madrasa/services/email"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	backend := memstore.New()
	t.Cleanup(func() { _ = backend.Close() })
	return NewRegistry(backend, nil)
}

func newTestAdmissions(t *testing.T) (*AdmissionService, *Registry) {
	t.Helper()
	emailsvc.ClearSentMessages()
	reg := newTestRegistry(t)
	svc := NewAdmissionService(reg, emailsvc.NewConsoleServiceMock(), nil)
	return svc, reg
}

func submitTestApplication(t *testing.T, svc *AdmissionService) AdmissionApplication {
	t.Helper()
	app, err := svc.Submit(AdmissionApplication{
		ApplicantName: "Rafiq Islam",
		GuardianName:  "Mahbub Rahman",
		Email:         "rafiq@test.local",
		Phone:         "+8801700000000",
		AppliedClass:  "Alim 1st Year",
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return app
}

func TestAdmissionService_Submit(t *testing.T) {
	svc, reg := newTestAdmissions(t)

	app := submitTestApplication(t, svc)
	if app.ID == "" {
		t.Error("Submit() did not assign an id")
	}
	if app.Status != AdmissionPending {
		t.Errorf("Status = %s, want %s", app.Status, AdmissionPending)
	}
	if app.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not set")
	}
	if reg.Admissions.Count() != 1 {
		t.Error("application not persisted")
	}

	// client-supplied status is ignored
	forced, err := svc.Submit(AdmissionApplication{
		ApplicantName: "Kamal",
		AppliedClass:  "Hifz",
		Status:        AdmissionApproved,
	})
	if err != nil {
		t.Fatal(err)
	}
	if forced.Status != AdmissionPending {
		t.Errorf("Status = %s, want %s", forced.Status, AdmissionPending)
	}

	// validation failures reject the application
	if _, err := svc.Submit(AdmissionApplication{ApplicantName: "No Class"}); err == nil {
		t.Error("Submit() accepted an application without a class")
	}
	if _, err := svc.Submit(AdmissionApplication{
		ApplicantName: "Bad Email", AppliedClass: "Hifz", Email: "nope",
	}); err == nil {
		t.Error("Submit() accepted a bad email")
	}
}

func TestAdmissionService_Approve(t *testing.T) {
	svc, reg := newTestAdmissions(t)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.nowFunc = func() time.Time { return now }

	app := submitTestApplication(t, svc)

	decided, err := svc.Decide(app.ID, true, "welcome")
	if err != nil {
		t.Fatalf("Decide() failed: %v", err)
	}
	if decided.Status != AdmissionApproved || decided.Note != "welcome" {
		t.Errorf("Decide() = %+v", decided)
	}
	if !decided.DecidedAt.Equal(now) {
		t.Errorf("DecidedAt = %v, want %v", decided.DecidedAt, now)
	}

	// approval enrolls the applicant
	students := reg.Students.GetAll()
	if len(students) != 1 {
		t.Fatalf("students = %d, want 1", len(students))
	}
	s := students[0]
	if s.Name != app.ApplicantName || s.Class != app.AppliedClass || s.Guardian != app.GuardianName {
		t.Errorf("enrolled student = %+v", s)
	}
	if !strings.HasPrefix(s.AdmissionNo, "ADM-") {
		t.Errorf("AdmissionNo = %s", s.AdmissionNo)
	}

	// the applicant is notified
	sent := emailsvc.LastSentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(sent))
	}
	if sent[0].To[0].Address != app.Email {
		t.Errorf("notified %s", sent[0].To[0].Address)
	}
	if !strings.Contains(sent[0].TextContent, "approved") {
		t.Errorf("notification body = %q", sent[0].TextContent)
	}

	// a decision is final
	if _, err := svc.Decide(app.ID, false, ""); err != ErrAlreadyDecided {
		t.Errorf("second Decide() error = %v, want %v", err, ErrAlreadyDecided)
	}
}

func TestAdmissionService_Reject(t *testing.T) {
	svc, reg := newTestAdmissions(t)
	app := submitTestApplication(t, svc)

	decided, err := svc.Decide(app.ID, false, "class full")
	if err != nil {
		t.Fatalf("Decide() failed: %v", err)
	}
	if decided.Status != AdmissionRejected {
		t.Errorf("Status = %s", decided.Status)
	}
	if reg.Students.Count() != 0 {
		t.Error("rejection enrolled a student")
	}

	sent := emailsvc.LastSentMessages()
	if len(sent) != 1 || !strings.Contains(sent[0].TextContent, "rejected") {
		t.Errorf("sent = %+v", sent)
	}
}

func TestAdmissionService_DecideUnknown(t *testing.T) {
	svc, _ := newTestAdmissions(t)
	if _, err := svc.Decide("nope", true, ""); err != ErrApplicationNotFound {
		t.Errorf("Decide() error = %v, want %v", err, ErrApplicationNotFound)
	}
}

func TestAdmissionService_NoEmailNoNotification(t *testing.T) {
	svc, _ := newTestAdmissions(t)
	app, err := svc.Submit(AdmissionApplication{ApplicantName: "Kamal", AppliedClass: "Hifz"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Decide(app.ID, true, ""); err != nil {
		t.Fatal(err)
	}
	if sent := emailsvc.LastSentMessages(); len(sent) != 0 {
		t.Errorf("sent = %d, want 0", len(sent))
	}
}
