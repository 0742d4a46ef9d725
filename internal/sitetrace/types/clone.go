package types

import "time"

// Clone returns a deep copy of the record, including kind-specific
// details.  Stores hand out clones so callers can never reach into
// shared state.
func (r Record) Clone() Record {
	out := r
	out.DueDate = cloneTime(r.DueDate)
	if r.Permit != nil {
		p := *r.Permit
		p.ValidFrom = cloneTime(r.Permit.ValidFrom)
		p.ValidTo = cloneTime(r.Permit.ValidTo)
		p.Hazards = append([]string(nil), r.Permit.Hazards...)
		p.Controls = append([]string(nil), r.Permit.Controls...)
		p.Roster = cloneRoster(r.Permit.Roster)
		out.Permit = &p
	}
	if r.Capa != nil {
		c := *r.Capa
		out.Capa = &c
	}
	if r.Observation != nil {
		o := *r.Observation
		out.Observation = &o
	}
	if r.JSA != nil {
		j := *r.JSA
		j.Steps = append([]string(nil), r.JSA.Steps...)
		j.Roster = cloneRoster(r.JSA.Roster)
		out.JSA = &j
	}
	return out
}

func cloneRoster(in []RosterEntry) []RosterEntry {
	if in == nil {
		return nil
	}
	out := make([]RosterEntry, len(in))
	copy(out, in)
	for i := range out {
		out[i].SignedAt = cloneTime(in[i].SignedAt)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
