package manifest

// Edition tags the manifest *format* itself, independent of the
// package's own version (§3). The writer always emits CurrentEdition;
// the reader accepts any edition string, flagging anything it does not
// recognize as EditionUnknown rather than failing to parse.
type Edition string

const (
	// CurrentEdition is the edition this implementation writes.
	CurrentEdition Edition = "0.12"

	// EditionUnknown marks a manifest whose edition tag this
	// implementation does not recognize. Such manifests are still
	// read successfully (§4.1: "unknown editions are accepted for
	// reading but flagged").
	EditionUnknown Edition = "unknown"
)

var knownEditions = map[Edition]bool{
	CurrentEdition: true,
	"0.11":         true,
	"0.10":         true,
	"0.9":          true,
	"0.8":          true,
	"0.7":          true,
}

// normalizeEdition returns raw if it is a recognized edition tag, or
// EditionUnknown otherwise. An empty tag (older manifests predating the
// edition field) is treated as unknown rather than current, so the next
// write upgrades it.
func normalizeEdition(raw string) Edition {
	if raw == "" {
		return EditionUnknown
	}
	e := Edition(raw)
	if knownEditions[e] {
		return e
	}
	return EditionUnknown
}

// IsKnown reports whether e is an edition this implementation
// recognizes.
func (e Edition) IsKnown() bool {
	return knownEditions[e]
}
