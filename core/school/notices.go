package school

import (
	"net/mail"
	"time"

	"github.com/madrasa-app/madrasa/core"
)

// Audience values a notice may target.
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceTeachers = "teachers"
	AudienceParents  = "parents"
)

// NoticeService emails freshly posted notices to their audience. Recipient
// lookup is injected so the package stays independent of the account store.
type NoticeService struct {
	mail       core.EmailService
	log        core.Logger
	recipients func(audience string) []mail.Address
	nowFunc    func() time.Time // mockable
}

func NewNoticeService(mailSvc core.EmailService, recipients func(audience string) []mail.Address, log core.Logger) *NoticeService {
	if log == nil {
		log = core.NopLogger{}
	}
	return &NoticeService{mail: mailSvc, log: log, recipients: recipients, nowFunc: time.Now}
}

// Broadcast mails a notice to every address in its audience. Notices that
// already expired and audiences with no reachable address are skipped.
func (svc *NoticeService) Broadcast(n Notice) {
	if svc.mail == nil || svc.recipients == nil || !n.Active(svc.nowFunc()) {
		return
	}
	to := svc.recipients(n.Audience)
	if len(to) == 0 {
		return
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: "Notice: " + n.Title,
		BodyStr: n.Body,
	})
}
