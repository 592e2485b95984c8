package equipment

// Snapshot is the local state a reconciliation run diffs against.
// It is read once per run and never refreshed mid-run.
type Snapshot struct {
	// ByExternalID maps feed external IDs to local records, archived ones included
	ByExternalID map[string]*Equipment
	// SKUs holds every SKU in the table, active and archived
	SKUs map[string]struct{}
	// Legacy holds non-archived records that have no external ID
	Legacy []*Equipment
}

// NewSnapshot indexes a full read of the equipment table
func NewSnapshot(records []Equipment) *Snapshot {
	s := &Snapshot{
		ByExternalID: make(map[string]*Equipment, len(records)),
		SKUs:         make(map[string]struct{}, len(records)),
		Legacy:       make([]*Equipment, 0),
	}

	for i := range records {
		rec := &records[i]
		if rec.SKU != "" {
			s.SKUs[rec.SKU] = struct{}{}
		}
		if rec.IsLegacy() {
			if !rec.IsArchived {
				s.Legacy = append(s.Legacy, rec)
			}
			continue
		}
		s.ByExternalID[*rec.ExternalID] = rec
	}

	return s
}

// Lookup returns the local record for an external ID
func (s *Snapshot) Lookup(externalID string) (*Equipment, bool) {
	rec, ok := s.ByExternalID[externalID]
	return rec, ok
}

// CloneSKUs returns a copy of the SKU set so a run can extend it without mutating the snapshot
func (s *Snapshot) CloneSKUs() map[string]struct{} {
	out := make(map[string]struct{}, len(s.SKUs))
	for sku := range s.SKUs {
		out[sku] = struct{}{}
	}
	return out
}
