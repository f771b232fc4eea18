package school

import (
	"github.com/madrasa-app/madrasa/core"
	"github.com/madrasa-app/madrasa/core/store"
	"github.com/madrasa-app/madrasa/storage"
)

// Slot names, one per collection.
const (
	StudentsSlot   = "students"
	TeachersSlot   = "teachers"
	NoticesSlot    = "notices"
	EventsSlot     = "events"
	AdmissionsSlot = "admissionApplications"
	ExamsSlot      = "examResults"
	LibrarySlot    = "libraryIssues"
	HostelSlot     = "hostelResidents"
	TransportSlot  = "transportUsers"
)

// Registry wires one typed store per collection over a shared backend.
type Registry struct {
	Students   *store.Store[Student]
	Teachers   *store.Store[Teacher]
	Notices    *store.Store[Notice]
	Events     *store.Store[CalendarEvent]
	Admissions *store.Store[AdmissionApplication]
	Exams      *store.Store[ExamResult]
	Library    *store.Store[LibraryIssue]
	Hostel     *store.Store[HostelResident]
	Transport  *store.Store[TransportUser]
}

func NewRegistry(backend storage.Backend, log core.Logger) *Registry {
	return &Registry{
		Students:   store.New[Student](StudentsSlot, backend, log),
		Teachers:   store.New[Teacher](TeachersSlot, backend, log),
		Notices:    store.New[Notice](NoticesSlot, backend, log),
		Events:     store.New[CalendarEvent](EventsSlot, backend, log),
		Admissions: store.New[AdmissionApplication](AdmissionsSlot, backend, log),
		Exams:      store.New[ExamResult](ExamsSlot, backend, log),
		Library:    store.New[LibraryIssue](LibrarySlot, backend, log),
		Hostel:     store.New[HostelResident](HostelSlot, backend, log),
		Transport:  store.New[TransportUser](TransportSlot, backend, log),
	}
}
