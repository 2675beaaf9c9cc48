package wire

// Fact is one authoritative, timestamped record of a stat's value or
// deletion. The full ordered sequence of facts for a branch reproduces
// every state that branch ever held; keyframes are derived, facts are not.
type Fact struct {
	ID      string    `json:"id"` // Content-addressed hash (FactID)
	Ref     EntityRef `json:"ref"`
	Key     string    `json:"key"`
	Branch  string    `json:"branch"`
	Turn    int64     `json:"turn"`
	Tick    int64     `json:"tick"`
	Value   Value     `json:"value,omitempty"` // nil iff Deleted
	Deleted bool      `json:"deleted,omitempty"`
	PlanID  string    `json:"plan_id,omitempty"` // set when the fact was recorded inside a plan
}

// ExistenceKey is the reserved stat key that records whether an entity
// exists. A created-fact sets it to Bool(true); a tombstone on it deletes
// the entity. Ordinary stat keys live in a separate namespace per entity,
// so no user key can collide with it (it is filtered at the entity layer).
const ExistenceKey = ".exists"

// Identify computes and stamps the fact's content-addressed ID.
func (f *Fact) Identify() error {
	id, err := FactID(f.Ref, f.Key, f.Branch, f.Turn, f.Tick, f.Value, f.Deleted)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}
