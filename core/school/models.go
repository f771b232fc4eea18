// Package school holds the managed record collections of the madrasa:
// students, staff, notices, the academic calendar, admissions, examination
// results, and the library/hostel/transport registers. Each collection lives
// in its own storage slot behind a keyed store.
package school

import "time"

type Student struct {
	ID          string    `json:"id"`
	AdmissionNo string    `json:"admission_no"`
	Name        string    `json:"name" validate:"required"`
	Class       string    `json:"class" validate:"required"`
	Section     string    `json:"section,omitempty"`
	Guardian    string    `json:"guardian,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty" validate:"omitempty,email"`
	Address     string    `json:"address,omitempty"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

func (s Student) Key() string { return s.ID }

type Teacher struct {
	ID         string    `json:"id"`
	StaffNo    string    `json:"staff_no"`
	Name       string    `json:"name" validate:"required"`
	Subject    string    `json:"subject,omitempty"`
	Department string    `json:"department,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Email      string    `json:"email,omitempty" validate:"omitempty,email"`
	HiredAt    time.Time `json:"hired_at"`
}

func (t Teacher) Key() string { return t.ID }

type Notice struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Body        string    `json:"body" validate:"required"`
	Audience    string    `json:"audience,omitempty"` // all | students | teachers | parents
	Pinned      bool      `json:"pinned"`
	PublishedAt time.Time `json:"published_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

func (n Notice) Key() string { return n.ID }

// Active reports whether the notice should still be displayed.
func (n Notice) Active(now time.Time) bool {
	return n.ExpiresAt.IsZero() || now.Before(n.ExpiresAt)
}

type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"` // exam | holiday | meeting | program
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at,omitempty"`
}

func (e CalendarEvent) Key() string { return e.ID }

// Admission application statuses.
const (
	AdmissionPending  = "pending"
	AdmissionApproved = "approved"
	AdmissionRejected = "rejected"
)

type AdmissionApplication struct {
	ID            string    `json:"id"`
	ApplicantName string    `json:"applicant_name" validate:"required"`
	GuardianName  string    `json:"guardian_name,omitempty"`
	Email         string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string    `json:"phone,omitempty"`
	AppliedClass  string    `json:"applied_class" validate:"required"`
	Status        string    `json:"status"`
	Note          string    `json:"note,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	DecidedAt     time.Time `json:"decided_at,omitempty"`
}

func (a AdmissionApplication) Key() string { return a.ID }

type ExamResult struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id" validate:"required"`
	Exam       string    `json:"exam" validate:"required"`
	Subject    string    `json:"subject" validate:"required"`
	Marks      int       `json:"marks" validate:"min=0,max=100"`
	Grade      string    `json:"grade,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (r ExamResult) Key() string { return r.ID }

type LibraryIssue struct {
	ID         string    `json:"id"`
	BookTitle  string    `json:"book_title" validate:"required"`
	MemberID   string    `json:"member_id" validate:"required"`
	IssuedAt   time.Time `json:"issued_at"`
	DueAt      time.Time `json:"due_at,omitempty"`
	ReturnedAt time.Time `json:"returned_at,omitempty"`
}

func (l LibraryIssue) Key() string { return l.ID }

type HostelResident struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id" validate:"required"`
	Building    string    `json:"building,omitempty"`
	Room        string    `json:"room,omitempty"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

func (h HostelResident) Key() string { return h.ID }

type TransportUser struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id" validate:"required"`
	Route      string `json:"route" validate:"required"`
	Stop       string `json:"stop,omitempty"`
	PickupTime string `json:"pickup_time,omitempty"`
}

func (t TransportUser) Key() string { return t.ID }
