package school

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SeedDemo loads a small demo dataset into empty collections. Collections
// that already hold records are left alone.
func SeedDemo(reg *Registry) error {
	now := time.Now().UTC()

	if reg.Students.Count() == 0 {
		students := []Student{
			{ID: uuid.New().String(), AdmissionNo: "ADM-2024-001", Name: "Rafiq Islam", Class: "Alim 1st Year", Section: "A", Guardian: "Mahbub Rahman", Phone: "01711-000001", EnrolledAt: now.AddDate(0, -8, 0)},
			{ID: uuid.New().String(), AdmissionNo: "ADM-2024-002", Name: "Tanvir Ahmed", Class: "Alim 1st Year", Section: "A", Guardian: "Shafiq Ahmed", Phone: "01711-000002", EnrolledAt: now.AddDate(0, -8, 0)},
			{ID: uuid.New().String(), AdmissionNo: "ADM-2023-015", Name: "Imran Kabir", Class: "Fazil 2nd Year", Section: "B", Guardian: "Nurul Kabir", Phone: "01711-000003", EnrolledAt: now.AddDate(-1, -2, 0)},
		}
		for _, s := range students {
			if !reg.Students.Add(s) {
				return errors.New("seeding students")
			}
		}
	}

	if reg.Teachers.Count() == 0 {
		teachers := []Teacher{
			{ID: uuid.New().String(), StaffNo: "STF-001", Name: "Ustadh Kamal Hossain", Subject: "Quran & Tajweed", Department: "Hifz", HiredAt: now.AddDate(-4, 0, 0)},
			{ID: uuid.New().String(), StaffNo: "STF-002", Name: "Ustadh Jamil Uddin", Subject: "Arabic Grammar", Department: "Alim", HiredAt: now.AddDate(-2, -6, 0)},
		}
		for _, t := range teachers {
			if !reg.Teachers.Add(t) {
				return errors.New("seeding teachers")
			}
		}
	}

	if reg.Notices.Count() == 0 {
		notices := []Notice{
			{ID: uuid.New().String(), Title: "Ramadan class schedule", Body: "Classes run 9:00-12:30 during Ramadan.", Audience: "all", Pinned: true, PublishedAt: now.AddDate(0, 0, -3)},
			{ID: uuid.New().String(), Title: "Library closed Friday", Body: "The library remains closed this Friday for maintenance.", Audience: "students", PublishedAt: now.AddDate(0, 0, -1), ExpiresAt: now.AddDate(0, 0, 6)},
		}
		for _, n := range notices {
			if !reg.Notices.Add(n) {
				return errors.New("seeding notices")
			}
		}
	}

	if reg.Events.Count() == 0 {
		events := []CalendarEvent{
			{ID: uuid.New().String(), Title: "Half-yearly examinations", Category: "exam", StartsAt: now.AddDate(0, 1, 0), EndsAt: now.AddDate(0, 1, 10)},
			{ID: uuid.New().String(), Title: "Annual parents meeting", Category: "meeting", Location: "Main hall", StartsAt: now.AddDate(0, 0, 14)},
		}
		for _, e := range events {
			if !reg.Events.Add(e) {
				return errors.New("seeding events")
			}
		}
	}

	return nil
}
