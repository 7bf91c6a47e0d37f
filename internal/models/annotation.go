package models

// Entity is one notable entity detected by the annotation capability.
type Entity struct {
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Evidence   string `json:"evidence,omitempty"`
	Source     string `json:"source,omitempty"`
}

// Annotation is the optional semantic enrichment of a ChangeRecord produced
// by the external classification capability. Its absence is a normal state,
// never an error.
type Annotation struct {
	NotableDetected bool     `json:"notable_detected"`
	Entities        []Entity `json:"entities,omitempty"`
	AddedEntity     string   `json:"added_entity,omitempty"`
	RemovedEntity   string   `json:"removed_entity,omitempty"`
	ModifiedEntity  string   `json:"modified_entity,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}
