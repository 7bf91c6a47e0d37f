package differ

// DiffConfig holds tunables for the snapshot differ.
type DiffConfig struct {
	// MinTextFragment is the minimum rune length of a text fragment before
	// it is reported as added or removed content.
	MinTextFragment int
	// MaxFragmentLength caps the length of reported text fragments.
	MaxFragmentLength int
	// EnableSemanticCleanup runs the diff library's semantic cleanup pass to
	// merge trivially fragmented edits.
	EnableSemanticCleanup bool
}

// DefaultDiffConfig returns the default diff configuration.
func DefaultDiffConfig() DiffConfig {
	return DiffConfig{
		MinTextFragment:       20,
		MaxFragmentLength:     200,
		EnableSemanticCleanup: true,
	}
}
