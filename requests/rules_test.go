package requests

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNumberCoercion(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		set     bool
		invalid bool
		value   float64
	}{
		{"json number", `{"n": 5}`, true, false, 5},
		{"fractional", `{"n": 2.5}`, true, false, 2.5},
		{"numeric string", `{"n": "5"}`, true, false, 5},
		{"fractional string", `{"n": "5.0"}`, true, false, 5},
		{"padded string", `{"n": " 7 "}`, true, false, 7},
		{"garbage string", `{"n": "lots"}`, true, true, 0},
		{"null", `{"n": null}`, false, false, 0},
		{"absent", `{}`, false, false, 0},
		{"empty string", `{"n": ""}`, false, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload struct {
				N Number `json:"n"`
			}
			if err := json.Unmarshal([]byte(tc.raw), &payload); err != nil {
				t.Fatalf("unmarshal must never fail, got %v", err)
			}
			if payload.N.IsSet() != tc.set {
				t.Errorf("IsSet() = %v, want %v", payload.N.IsSet(), tc.set)
			}
			if payload.N.Invalid() != tc.invalid {
				t.Errorf("Invalid() = %v, want %v", payload.N.Invalid(), tc.invalid)
			}
			if payload.N.Float() != tc.value {
				t.Errorf("Float() = %v, want %v", payload.N.Float(), tc.value)
			}
		})
	}
}

func TestNumberIsWhole(t *testing.T) {
	if !NumberOf(5).IsWhole() {
		t.Error("5 should be whole")
	}
	if NumberOf(5.5).IsWhole() {
		t.Error("5.5 should not be whole")
	}
	var unset Number
	if unset.IsWhole() {
		t.Error("unset Number should not be whole")
	}
}

func validCreateInput() CreateInput {
	return CreateInput{
		ServiceType: "soil_testing",
		Title:       "Soil test for block A",
		Description: "pH and nutrient profile before planting",
		Location:    Location{Province: "Western"},
	}
}

func TestValidateCreate(t *testing.T) {
	if vs := ValidateCreate(validCreateInput()); len(vs) != 0 {
		t.Fatalf("valid input produced violations: %v", vs)
	}

	t.Run("collects every violation", func(t *testing.T) {
		vs := ValidateCreate(CreateInput{ServiceType: "weather_control", Priority: "asap"})
		fields := map[string]bool{}
		for _, v := range vs {
			fields[v.Field] = true
		}
		for _, f := range []string{"title", "description", "service_type", "priority", "location.province"} {
			if !fields[f] {
				t.Errorf("missing violation for %s (got %v)", f, vs)
			}
		}
	})

	t.Run("legacy harvest alias accepted", func(t *testing.T) {
		in := validCreateInput()
		in.ServiceType = "harvest_assistance"
		for _, v := range ValidateCreate(in) {
			if v.Field == "service_type" {
				t.Fatalf("alias rejected: %v", v)
			}
		}
	})

	t.Run("negative cost estimate", func(t *testing.T) {
		in := validCreateInput()
		in.CostEstimate = NumberOf(-10)
		vs := ValidateCreate(in)
		if len(vs) != 1 || vs[0].Field != "cost_estimate" {
			t.Fatalf("violations = %v", vs)
		}
	})
}

func validHarvestInput(now time.Time) HarvestInput {
	base := validCreateInput()
	base.ServiceType = "harvest"
	return HarvestInput{
		CreateInput:     base,
		WorkersNeeded:   NumberOf(10),
		TreesToHarvest:  NumberOf(150),
		HarvestDateFrom: now.AddDate(0, 0, 2).Format("2006-01-02"),
		HarvestDateTo:   now.AddDate(0, 0, 9).Format("2006-01-02"),
	}
}

func TestValidateHarvest(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	if vs := ValidateHarvest(validHarvestInput(now), now); len(vs) != 0 {
		t.Fatalf("valid input produced violations: %v", vs)
	}

	t.Run("worker bounds", func(t *testing.T) {
		for _, n := range []float64{1, 50} {
			in := validHarvestInput(now)
			in.WorkersNeeded = NumberOf(n)
			if vs := ValidateHarvest(in, now); len(vs) != 0 {
				t.Errorf("workers=%v rejected: %v", n, vs)
			}
		}
		for _, n := range []float64{0, 51, -3} {
			in := validHarvestInput(now)
			in.WorkersNeeded = NumberOf(n)
			if vs := ValidateHarvest(in, now); len(vs) == 0 {
				t.Errorf("workers=%v accepted", n)
			}
		}
	})

	t.Run("fractional workers rejected", func(t *testing.T) {
		in := validHarvestInput(now)
		in.WorkersNeeded = NumberOf(2.5)
		vs := ValidateHarvest(in, now)
		if len(vs) != 1 || vs[0].Field != "workers_needed" {
			t.Fatalf("violations = %v", vs)
		}
	})

	t.Run("trees minimum", func(t *testing.T) {
		in := validHarvestInput(now)
		in.TreesToHarvest = NumberOf(0)
		if vs := ValidateHarvest(in, now); len(vs) == 0 {
			t.Error("trees=0 accepted")
		}
		in.TreesToHarvest = NumberOf(1)
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("trees=1 rejected: %v", vs)
		}
	})

	t.Run("start date today is allowed", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.Format("2006-01-02")
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("from=today rejected: %v", vs)
		}
	})

	t.Run("start date yesterday rejected", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.AddDate(0, 0, -1).Format("2006-01-02")
		vs := ValidateHarvest(in, now)
		if len(vs) == 0 {
			t.Fatal("from=yesterday accepted")
		}
		if vs[0].Field != "harvest_date_from" {
			t.Fatalf("violations = %v", vs)
		}
	})

	t.Run("window of exactly 30 days allowed", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.Format("2006-01-02")
		in.HarvestDateTo = now.AddDate(0, 0, 30).Format("2006-01-02")
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("30-day window rejected: %v", vs)
		}
	})

	t.Run("window of 31 days rejected", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.Format("2006-01-02")
		in.HarvestDateTo = now.AddDate(0, 0, 31).Format("2006-01-02")
		if vs := ValidateHarvest(in, now); len(vs) == 0 {
			t.Error("31-day window accepted")
		}
	})

	t.Run("end before start rejected", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.AddDate(0, 0, 5).Format("2006-01-02")
		in.HarvestDateTo = now.AddDate(0, 0, 2).Format("2006-01-02")
		if vs := ValidateHarvest(in, now); len(vs) == 0 {
			t.Error("inverted window accepted")
		}
	})

	t.Run("rfc3339 dates accepted", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = now.AddDate(0, 0, 1).Format(time.RFC3339)
		in.HarvestDateTo = now.AddDate(0, 0, 8).Format(time.RFC3339)
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("rfc3339 dates rejected: %v", vs)
		}
	})

	t.Run("unparseable date", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = "next tuesday"
		vs := ValidateHarvest(in, now)
		if len(vs) == 0 {
			t.Fatal("garbage date accepted")
		}
	})

	t.Run("missing dates reported separately", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HarvestDateFrom = ""
		in.HarvestDateTo = ""
		vs := ValidateHarvest(in, now)
		fields := map[string]int{}
		for _, v := range vs {
			fields[v.Field]++
		}
		if fields["harvest_date_from"] != 1 || fields["harvest_date_to"] != 1 {
			t.Fatalf("violations = %v", vs)
		}
	})
}

func TestValidateHarvestHassBreakdown(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	n := func(v float64) *Number { x := NumberOf(v); return &x }

	t.Run("sum within 100 over selected categories", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HassBreakdown = &HassInput{C12C14: n(40), C16C18: n(40)}
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("40+40 rejected: %v", vs)
		}
	})

	t.Run("sum of 101 rejected", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HassBreakdown = &HassInput{C12C14: n(40), C16C18: n(40), C20C24: n(21)}
		vs := ValidateHarvest(in, now)
		if len(vs) != 1 || vs[0].Field != "hass_breakdown" {
			t.Fatalf("violations = %v", vs)
		}
	})

	t.Run("sum of exactly 100 allowed", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HassBreakdown = &HassInput{C12C14: n(40), C16C18: n(40), C20C24: n(20)}
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("sum=100 rejected: %v", vs)
		}
	})

	t.Run("single category out of range", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HassBreakdown = &HassInput{C16C18: n(120)}
		vs := ValidateHarvest(in, now)
		if len(vs) == 0 {
			t.Fatal("120 percent accepted")
		}
		if vs[0].Field != "hass_breakdown.c16c18" {
			t.Fatalf("violations = %v", vs)
		}
	})

	t.Run("unselected categories are not summed", func(t *testing.T) {
		in := validHarvestInput(now)
		in.HassBreakdown = &HassInput{C20C24: n(95)}
		if vs := ValidateHarvest(in, now); len(vs) != 0 {
			t.Errorf("single category at 95 rejected: %v", vs)
		}
	})
}

func TestToHarvestDetails(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	in := validHarvestInput(now)
	n := NumberOf(60)
	in.HassBreakdown = &HassInput{C16C18: &n}
	in.EquipmentNeeded = []string{"ladders", "crates"}

	d := toHarvestDetails(in)
	if d.WorkersNeeded != 10 || d.TreesToHarvest != 150 {
		t.Fatalf("counts not materialized: %+v", d)
	}
	if d.HarvestDateFrom.Hour() != 0 || d.HarvestDateFrom.Location() != time.UTC {
		t.Fatal("dates must be start-of-day UTC")
	}
	if d.HassBreakdown == nil || d.HassBreakdown.C16C18 == nil || *d.HassBreakdown.C16C18 != 60 {
		t.Fatalf("hass breakdown not materialized: %+v", d.HassBreakdown)
	}
	if d.HassBreakdown.C12C14 != nil {
		t.Fatal("unselected category must stay nil")
	}
	if len(d.EquipmentNeeded) != 2 {
		t.Fatal("equipment not carried over")
	}
}
