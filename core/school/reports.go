package school

import (
	"time"

	"github.com/madrasa-app/madrasa/core/store"
)

// DashboardReport is the live summary served to the landing dashboard.
type DashboardReport struct {
	Students          int       `json:"students"`
	Teachers          int       `json:"teachers"`
	PendingAdmissions int       `json:"pending_admissions"`
	ActiveNotices     int       `json:"active_notices"`
	UpcomingEvents    int       `json:"upcoming_events"`
	OpenLibraryIssues int       `json:"open_library_issues"`
	HostelResidents   int       `json:"hostel_residents"`
	TransportUsers    int       `json:"transport_users"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Reports aggregates dashboard figures from live bindings over the registry
// collections, so repeated reads don't re-decode every slot.
type Reports struct {
	students   *store.Binding[Student]
	teachers   *store.Binding[Teacher]
	notices    *store.Binding[Notice]
	events     *store.Binding[CalendarEvent]
	admissions *store.Binding[AdmissionApplication]
	library    *store.Binding[LibraryIssue]
	hostel     *store.Binding[HostelResident]
	transport  *store.Binding[TransportUser]

	nowFunc func() time.Time // mockable
}

func NewReports(reg *Registry) *Reports {
	return &Reports{
		students:   store.Bind(reg.Students),
		teachers:   store.Bind(reg.Teachers),
		notices:    store.Bind(reg.Notices),
		events:     store.Bind(reg.Events),
		admissions: store.Bind(reg.Admissions),
		library:    store.Bind(reg.Library),
		hostel:     store.Bind(reg.Hostel),
		transport:  store.Bind(reg.Transport),
		nowFunc:    time.Now,
	}
}

func (r *Reports) Dashboard() DashboardReport {
	now := r.nowFunc()
	return DashboardReport{
		Students: r.students.Count(),
		Teachers: r.teachers.Count(),
		PendingAdmissions: len(r.admissions.Search(func(a AdmissionApplication) bool {
			return a.Status == AdmissionPending
		})),
		ActiveNotices: len(r.notices.Search(func(n Notice) bool {
			return n.Active(now)
		})),
		UpcomingEvents: len(r.events.Search(func(e CalendarEvent) bool {
			return e.StartsAt.After(now)
		})),
		OpenLibraryIssues: len(r.library.Search(func(l LibraryIssue) bool {
			return l.ReturnedAt.IsZero()
		})),
		HostelResidents: r.hostel.Count(),
		TransportUsers:  r.transport.Count(),
		GeneratedAt:     now.UTC(),
	}
}

// Close releases the change subscriptions held by the bindings.
func (r *Reports) Close() {
	r.students.Close()
	r.teachers.Close()
	r.notices.Close()
	r.events.Close()
	r.admissions.Close()
	r.library.Close()
	r.hostel.Close()
	r.transport.Close()
}
