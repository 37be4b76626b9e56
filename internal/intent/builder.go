package intent

import (
	"fmt"
	"time"

	"github.com/pawprint/go-reminder-service/internal/domain"
)

const (
	// reminderHour is the local time of day every vaccine reminder fires at
	reminderHour = 9

	// beforeLeadDays is how far ahead the advance reminder fires
	beforeLeadDays = 7

	// farOutDays is the window beyond which only the advance reminder is
	// scheduled. One-shot alarms registered months ahead tend to be dropped
	// by platform limits; day-of and overdue alerts get picked up by a later
	// sync once the due date enters the window.
	farOutDays = 60
)

// dueDateLayouts are the formats the interpretation pipeline is known to
// emit for next_due. Anything else is treated as unparseable.
var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// BuildVaccineIntents derives the desired vaccine reminders for one pet
// from its interpreted health records. Pure and deterministic given now.
//
// Vaccines are deduplicated by normalized name, keeping the record with the
// latest parseable next_due. A vaccine with no parseable next_due yields no
// intents. The before reminder is emitted whenever its instant is still in
// the future; day-of and after reminders only when the due date is not far
// out.
func BuildVaccineIntents(pet domain.Pet, records []domain.HealthRecord, now time.Time) []domain.VaccineIntent {
	due := latestDueByVaccine(records, now.Location())

	var intents []domain.VaccineIntent
	for _, v := range due {
		at09 := func(d time.Time) time.Time {
			return time.Date(d.Year(), d.Month(), d.Day(), reminderHour, 0, 0, 0, d.Location())
		}

		before := at09(v.dueAt.AddDate(0, 0, -beforeLeadDays))
		dayOf := at09(v.dueAt)
		after := at09(v.dueAt.AddDate(0, 0, 1))

		farOut := v.dueAt.Sub(now) > farOutDays*24*time.Hour

		if before.After(now) {
			intents = append(intents, makeIntent(pet, v.name, domain.TriggerBefore, before, v.dueAt))
		}
		if !farOut && dayOf.After(now) {
			intents = append(intents, makeIntent(pet, v.name, domain.TriggerDayOf, dayOf, v.dueAt))
		}
		if !farOut && after.After(now) {
			intents = append(intents, makeIntent(pet, v.name, domain.TriggerAfter, after, v.dueAt))
		}
	}
	return intents
}

type dueVaccine struct {
	name  string // original casing from the record kept for display
	dueAt time.Time
}

// latestDueByVaccine collapses repeated mentions of the same vaccine to the
// one with the latest due date. Records with unparseable or missing
// next_due are skipped silently.
func latestDueByVaccine(records []domain.HealthRecord, loc *time.Location) []dueVaccine {
	latest := make(map[string]dueVaccine)
	var order []string

	for _, rec := range records {
		for _, v := range rec.Vaccines {
			key := domain.NormalizeItemName(v.Name)
			if key == "" {
				continue
			}
			dueAt, ok := parseDueDate(v.NextDue, loc)
			if !ok {
				continue
			}
			cur, seen := latest[key]
			if !seen {
				order = append(order, key)
			}
			if !seen || dueAt.After(cur.dueAt) {
				latest[key] = dueVaccine{name: v.Name, dueAt: dueAt}
			}
		}
	}

	out := make([]dueVaccine, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

func parseDueDate(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func makeIntent(pet domain.Pet, vaccine string, trigger domain.TriggerType, at, dueAt time.Time) domain.VaccineIntent {
	in := domain.VaccineIntent{
		DedupKey:    domain.VaccineDedupKey(pet.ID, vaccine, trigger),
		TriggerType: trigger,
		PetID:       pet.ID,
		PetName:     pet.Name,
		VaccineName: vaccine,
		TriggerAt:   at,
	}

	switch trigger {
	case domain.TriggerBefore:
		in.Title = "Vaccine due soon"
		in.Body = fmt.Sprintf("%s's %s vaccine is due on %s.", pet.Name, vaccine, dueAt.Format("Jan 2, 2006"))
	case domain.TriggerDayOf:
		in.Title = "Vaccine due today"
		in.Body = fmt.Sprintf("%s's %s vaccine is due today.", pet.Name, vaccine)
	case domain.TriggerAfter:
		in.Title = "Vaccine overdue"
		in.Body = fmt.Sprintf("%s's %s vaccine was due yesterday. Time to book a visit.", pet.Name, vaccine)
	}
	return in
}
