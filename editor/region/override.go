package region

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// MaxDangerLevel is the highest accepted inline danger level.
const MaxDangerLevel = 10

// OverrideKind selects which shape an Override carries.
type OverrideKind int

const (
	OverrideNone OverrideKind = iota
	OverrideEnvironment
	OverrideInline
)

func (k OverrideKind) String() string {
	switch k {
	case OverrideNone:
		return "none"
	case OverrideEnvironment:
		return "environment"
	case OverrideInline:
		return "inline"
	default:
		return fmt.Sprintf("OverrideKind(%d)", int(k))
	}
}

// Override is the environment override attached to a region. It is either
// absent, a reference to a shared environment definition, or an inline set of
// properties.
type Override struct {
	Kind          OverrideKind
	EnvironmentID string
	Biome         string
	Climate       string
	DangerLevel   *int
}

// NoOverride returns the empty override.
func NoOverride() Override {
	return Override{}
}

// EnvironmentOverride references a shared environment definition by id.
func EnvironmentOverride(id string) Override {
	return Override{Kind: OverrideEnvironment, EnvironmentID: id}
}

// InlineOverride carries the properties directly. dangerLevel may be nil.
func InlineOverride(biome, climate string, dangerLevel *int) Override {
	return Override{Kind: OverrideInline, Biome: biome, Climate: climate, DangerLevel: dangerLevel}
}

// IsZero reports whether no override is set.
func (o Override) IsZero() bool {
	return o.Kind == OverrideNone
}

// Validate checks that the override carries exactly the fields of its kind.
func (o Override) Validate() error {
	switch o.Kind {
	case OverrideNone:
		if o.EnvironmentID != "" || o.Biome != "" || o.Climate != "" || o.DangerLevel != nil {
			return &ValidationError{Field: "override", Reason: "fields set on an empty override"}
		}
	case OverrideEnvironment:
		if strings.TrimSpace(o.EnvironmentID) == "" {
			return &ValidationError{Field: "environmentId", Reason: "must not be empty"}
		}
		if o.Biome != "" || o.Climate != "" || o.DangerLevel != nil {
			return &ValidationError{Field: "override", Reason: "environment reference cannot carry inline metadata"}
		}
	case OverrideInline:
		if o.EnvironmentID != "" {
			return &ValidationError{Field: "override", Reason: "inline metadata cannot carry an environment reference"}
		}
		if o.Biome == "" && o.Climate == "" && o.DangerLevel == nil {
			return &ValidationError{Field: "metadata", Reason: "inline override needs at least one property"}
		}
		if o.DangerLevel != nil && (*o.DangerLevel < 0 || *o.DangerLevel > MaxDangerLevel) {
			return &ValidationError{Field: "metadata.dangerLevel", Reason: fmt.Sprintf("must be between 0 and %d", MaxDangerLevel)}
		}
	default:
		return &ValidationError{Field: "override", Reason: "unknown override kind " + o.Kind.String()}
	}
	return nil
}

// Metadata is the persisted inline override shape.
type Metadata struct {
	Biome       string `json:"biome,omitempty"`
	Climate     string `json:"climate,omitempty"`
	DangerLevel *int   `json:"dangerLevel,omitempty"`
}

// Persisted splits the override into the environmentId and metadata fields of
// the persisted region shape.
func (o Override) Persisted() (string, Metadata) {
	switch o.Kind {
	case OverrideEnvironment:
		return o.EnvironmentID, Metadata{}
	case OverrideInline:
		return "", Metadata{Biome: o.Biome, Climate: o.Climate, DangerLevel: o.DangerLevel}
	default:
		return "", Metadata{}
	}
}

// ParseOverride builds an Override from the loosely typed persisted fields.
// Metadata values are coerced to their expected types; unknown keys are
// ignored. Supplying both an environment id and inline metadata is rejected.
func ParseOverride(environmentID string, metadata map[string]any) (Override, error) {
	var inline Override
	inline.Kind = OverrideInline

	for key, raw := range metadata {
		if raw == nil {
			continue
		}
		switch key {
		case "biome":
			s, err := cast.ToStringE(raw)
			if err != nil {
				return Override{}, &ValidationError{Field: "metadata.biome", Reason: err.Error()}
			}
			inline.Biome = strings.TrimSpace(s)
		case "climate":
			s, err := cast.ToStringE(raw)
			if err != nil {
				return Override{}, &ValidationError{Field: "metadata.climate", Reason: err.Error()}
			}
			inline.Climate = strings.TrimSpace(s)
		case "dangerLevel":
			n, err := cast.ToIntE(raw)
			if err != nil {
				return Override{}, &ValidationError{Field: "metadata.dangerLevel", Reason: err.Error()}
			}
			inline.DangerLevel = &n
		}
	}

	hasInline := inline.Biome != "" || inline.Climate != "" || inline.DangerLevel != nil
	environmentID = strings.TrimSpace(environmentID)

	var o Override
	switch {
	case environmentID != "" && hasInline:
		return Override{}, &ValidationError{Field: "override", Reason: "both environmentId and inline metadata set"}
	case environmentID != "":
		o = EnvironmentOverride(environmentID)
	case hasInline:
		o = inline
	default:
		o = NoOverride()
	}

	if err := o.Validate(); err != nil {
		return Override{}, err
	}
	return o, nil
}
