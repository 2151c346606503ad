package requests

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number accepts JSON numbers as well as numeric strings ("5", "5.0").
// A value that cannot be coerced is recorded, not rejected, so the
// validator can report it as a field violation instead of failing decode.
type Number struct {
	value   float64
	present bool
	invalid bool
}

// NumberOf builds a set Number, mainly for tests and programmatic input.
func NumberOf(v float64) Number { return Number{value: v, present: true} }

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			n.present, n.invalid = true, true
			return nil
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			n.present, n.invalid = true, true
			return nil
		}
		n.value, n.present = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		n.present, n.invalid = true, true
		return nil
	}
	n.value, n.present = v, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.present || n.invalid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// IsSet reports whether any value (valid or not) was supplied.
func (n Number) IsSet() bool { return n.present }

// Invalid reports whether the supplied value could not be coerced.
func (n Number) Invalid() bool { return n.invalid }

// Float returns the coerced value; zero when unset or invalid.
func (n Number) Float() float64 {
	if !n.present || n.invalid {
		return 0
	}
	return n.value
}

// Int returns the coerced value truncated to an integer.
func (n Number) Int() int { return int(n.Float()) }

// IsWhole reports whether the coerced value has no fractional part.
func (n Number) IsWhole() bool {
	return n.present && !n.invalid && n.value == math.Trunc(n.value)
}

// Staffing and window policy bounds for harvest requests.
const (
	MinHarvestWorkers = 1
	MaxHarvestWorkers = 50
	MinTreesToHarvest = 1
	MaxHarvestWindow  = 30 * 24 * time.Hour
	dateLayout        = "2006-01-02"
)

// CreateInput is the payload for filing a general service request.
type CreateInput struct {
	ServiceType  string   `json:"service_type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority,omitempty"`
	Location     Location `json:"location"`
	CostEstimate Number   `json:"cost_estimate,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// HassInput mirrors HassBreakdown with lenient numerics. Absent categories
// stay nil and are skipped by validation.
type HassInput struct {
	C12C14 *Number `json:"c12c14,omitempty"`
	C16C18 *Number `json:"c16c18,omitempty"`
	C20C24 *Number `json:"c20c24,omitempty"`
}

type sizeInput struct {
	name string
	n    Number
}

func (h *HassInput) selected() []sizeInput {
	if h == nil {
		return nil
	}
	var out []sizeInput
	add := func(name string, n *Number) {
		if n != nil && n.IsSet() {
			out = append(out, sizeInput{name, *n})
		}
	}
	add("c12c14", h.C12C14)
	add("c16c18", h.C16C18)
	add("c20c24", h.C20C24)
	return out
}

// HarvestInput is the payload for filing a harvest request.
type HarvestInput struct {
	CreateInput
	WorkersNeeded   Number     `json:"workers_needed"`
	EquipmentNeeded []string   `json:"equipment_needed,omitempty"`
	TreesToHarvest  Number     `json:"trees_to_harvest"`
	HarvestDateFrom string     `json:"harvest_date_from"`
	HarvestDateTo   string     `json:"harvest_date_to"`
	HassBreakdown   *HassInput `json:"hass_breakdown,omitempty"`
}

// ValidateCreate runs a full pass over the general-request payload and
// returns every violation found.
func ValidateCreate(in CreateInput) []Violation {
	var vs []Violation
	if strings.TrimSpace(in.Title) == "" {
		vs = append(vs, Violation{"title", "title is required"})
	}
	if strings.TrimSpace(in.Description) == "" {
		vs = append(vs, Violation{"description", "description is required"})
	}
	if _, ok := NormalizeServiceType(in.ServiceType); !ok {
		vs = append(vs, Violation{"service_type", fmt.Sprintf("unknown service type %q", in.ServiceType)})
	}
	if in.Priority != "" && !ValidPriority(Priority(in.Priority)) {
		vs = append(vs, Violation{"priority", "priority must be one of low, medium, high, urgent"})
	}
	if strings.TrimSpace(in.Location.Province) == "" {
		vs = append(vs, Violation{"location.province", "province is required"})
	}
	if in.CostEstimate.IsSet() {
		if in.CostEstimate.Invalid() {
			vs = append(vs, Violation{"cost_estimate", "must be a number"})
		} else if in.CostEstimate.Float() < 0 {
			vs = append(vs, Violation{"cost_estimate", "cannot be negative"})
		}
	}
	return vs
}

// ValidateHarvest checks the harvest-specific constraints. Date checks use
// start-of-day UTC: "today" is 00:00:00 UTC of the current day.
func ValidateHarvest(in HarvestInput, now time.Time) []Violation {
	var vs []Violation

	switch {
	case !in.WorkersNeeded.IsSet():
		vs = append(vs, Violation{"workers_needed", "workers_needed is required"})
	case in.WorkersNeeded.Invalid():
		vs = append(vs, Violation{"workers_needed", "must be a number"})
	case !in.WorkersNeeded.IsWhole():
		vs = append(vs, Violation{"workers_needed", "must be a whole number"})
	case in.WorkersNeeded.Int() < MinHarvestWorkers || in.WorkersNeeded.Int() > MaxHarvestWorkers:
		vs = append(vs, Violation{"workers_needed", fmt.Sprintf("must be between %d and %d", MinHarvestWorkers, MaxHarvestWorkers)})
	}

	switch {
	case !in.TreesToHarvest.IsSet():
		vs = append(vs, Violation{"trees_to_harvest", "trees_to_harvest is required"})
	case in.TreesToHarvest.Invalid():
		vs = append(vs, Violation{"trees_to_harvest", "must be a number"})
	case !in.TreesToHarvest.IsWhole():
		vs = append(vs, Violation{"trees_to_harvest", "must be a whole number"})
	case in.TreesToHarvest.Int() < MinTreesToHarvest:
		vs = append(vs, Violation{"trees_to_harvest", fmt.Sprintf("must be at least %d", MinTreesToHarvest)})
	}

	from, fromOK := parseAndCheckDate(&vs, "harvest_date_from", in.HarvestDateFrom)
	to, toOK := parseAndCheckDate(&vs, "harvest_date_to", in.HarvestDateTo)
	if fromOK {
		today := startOfDayUTC(now)
		if from.Before(today) {
			vs = append(vs, Violation{"harvest_date_from", "cannot be in the past"})
		}
	}
	if fromOK && toOK {
		if to.Before(from) {
			vs = append(vs, Violation{"harvest_date_to", "must be on or after harvest_date_from"})
		} else if to.Sub(from) > MaxHarvestWindow {
			vs = append(vs, Violation{"harvest_date_to", "harvest window cannot exceed 30 days"})
		}
	}

	for _, s := range in.HassBreakdown.selected() {
		if s.n.Invalid() {
			vs = append(vs, Violation{"hass_breakdown." + s.name, "must be a number"})
			continue
		}
		if s.n.Float() < 0 || s.n.Float() > 100 {
			vs = append(vs, Violation{"hass_breakdown." + s.name, "must be between 0 and 100"})
		}
	}
	sum := 0.0
	valid := true
	for _, s := range in.HassBreakdown.selected() {
		if s.n.Invalid() {
			valid = false
			break
		}
		sum += s.n.Float()
	}
	if valid && sum > 100 {
		vs = append(vs, Violation{"hass_breakdown", fmt.Sprintf("percentages sum to %g, cannot exceed 100", sum)})
	}

	return vs
}

// parseAndCheckDate accepts RFC3339 timestamps or bare YYYY-MM-DD dates.
func parseAndCheckDate(vs *[]Violation, field, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*vs = append(*vs, Violation{field, field + " is required"})
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return startOfDayUTC(t), true
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), true
	}
	*vs = append(*vs, Violation{field, "must be a date (YYYY-MM-DD or RFC3339)"})
	return time.Time{}, false
}

func startOfDayUTC(t time.Time) time.Time {
	tt := t.UTC()
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
}

// toHarvestDetails materializes validated input into the stored sub-document.
// Callers must have run ValidateHarvest first.
func toHarvestDetails(in HarvestInput) *HarvestDetails {
	var vs []Violation
	from, _ := parseAndCheckDate(&vs, "harvest_date_from", in.HarvestDateFrom)
	to, _ := parseAndCheckDate(&vs, "harvest_date_to", in.HarvestDateTo)
	d := &HarvestDetails{
		WorkersNeeded:   in.WorkersNeeded.Int(),
		EquipmentNeeded: in.EquipmentNeeded,
		TreesToHarvest:  in.TreesToHarvest.Int(),
		HarvestDateFrom: from,
		HarvestDateTo:   to,
	}
	if in.HassBreakdown != nil {
		hb := &HassBreakdown{}
		if n := in.HassBreakdown.C12C14; n != nil && n.IsSet() {
			v := n.Float()
			hb.C12C14 = &v
		}
		if n := in.HassBreakdown.C16C18; n != nil && n.IsSet() {
			v := n.Float()
			hb.C16C18 = &v
		}
		if n := in.HassBreakdown.C20C24; n != nil && n.IsSet() {
			v := n.Float()
			hb.C20C24 = &v
		}
		if len(hb.Selected()) > 0 {
			d.HassBreakdown = hb
		}
	}
	return d
}
