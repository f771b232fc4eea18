package school

// Permission names checked by the session manager and the API middleware.
// Admins bypass permission checks entirely.
const (
	PermViewStudents = "view_students"
	PermViewMarks    = "view_marks"
	PermEditMarks    = "edit_marks"
	PermViewNotices  = "view_notices"
	PermPostNotices  = "post_notices"
)

// AllPermissions lists every known permission, mainly for admin tooling.
var AllPermissions = []string{
	PermViewStudents,
	PermViewMarks,
	PermEditMarks,
	PermViewNotices,
	PermPostNotices,
}
