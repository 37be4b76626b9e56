package domain

import "testing"

func TestMedDedupKeyDeterminism(t *testing.T) {
	tests := []struct {
		name string
		med  string
	}{
		{name: "plain", med: "amoxicillin"},
		{name: "mixed case", med: "Amoxicillin"},
		{name: "upper case", med: "AMOXICILLIN"},
		{name: "surrounding whitespace", med: "  Amoxicillin\t"},
	}

	want := MedDedupKey("p1", "amoxicillin", ReminderTime{Hour: 9, Minute: 0})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MedDedupKey("p1", tt.med, ReminderTime{Hour: 9, Minute: 0})
			if got != want {
				t.Errorf("MedDedupKey(%q) = %q, want %q", tt.med, got, want)
			}
		})
	}
}

func TestMedDedupKeyFormat(t *testing.T) {
	got := MedDedupKey("p1", "Amoxicillin", ReminderTime{Hour: 9, Minute: 0})
	if got != "med_p1_amoxicillin_9:0" {
		t.Errorf("MedDedupKey = %q, want med_p1_amoxicillin_9:0", got)
	}

	got = MedDedupKey("p1", "Amoxicillin", ReminderTime{Hour: 21, Minute: 0})
	if got != "med_p1_amoxicillin_21:0" {
		t.Errorf("MedDedupKey = %q, want med_p1_amoxicillin_21:0", got)
	}
}

func TestVaccineDedupKey(t *testing.T) {
	tests := []struct {
		name    string
		vaccine string
		trigger TriggerType
		want    string
	}{
		{name: "before", vaccine: "Rabies", trigger: TriggerBefore, want: "vax_pet-1_rabies_before"},
		{name: "day of", vaccine: " rabies ", trigger: TriggerDayOf, want: "vax_pet-1_rabies_day_of"},
		{name: "after", vaccine: "RABIES", trigger: TriggerAfter, want: "vax_pet-1_rabies_after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VaccineDedupKey("pet-1", tt.vaccine, tt.trigger)
			if got != tt.want {
				t.Errorf("VaccineDedupKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMedDedupPrefixCoversKey(t *testing.T) {
	prefix := MedDedupPrefix("p1", "  AMOXICILLIN ")
	key := MedDedupKey("p1", "amoxicillin", ReminderTime{Hour: 8, Minute: 30})
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		t.Errorf("key %q not covered by prefix %q", key, prefix)
	}
}

func TestDailyTriggerDate(t *testing.T) {
	got := DailyTriggerDate(ReminderTime{Hour: 9, Minute: 5})
	if got != "daily:09:05" {
		t.Errorf("DailyTriggerDate = %q, want daily:09:05", got)
	}
}

func TestReminderTimeValid(t *testing.T) {
	tests := []struct {
		name string
		rt   ReminderTime
		want bool
	}{
		{name: "valid morning", rt: ReminderTime{Hour: 9, Minute: 0}, want: true},
		{name: "valid last minute", rt: ReminderTime{Hour: 23, Minute: 59}, want: true},
		{name: "hour too large", rt: ReminderTime{Hour: 24, Minute: 0}, want: false},
		{name: "negative minute", rt: ReminderTime{Hour: 9, Minute: -1}, want: false},
		{name: "minute too large", rt: ReminderTime{Hour: 9, Minute: 60}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rt.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
