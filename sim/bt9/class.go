package bt9

import (
	"fmt"
	"strings"
)

// BranchType is the static kind of a branch instruction.
type BranchType uint8

const (
	TypeUnknown BranchType = iota
	TypeReturn
	TypeJump
	TypeCall
)

// Directness tells whether the target is encoded in the instruction.
type Directness uint8

const (
	DirectnessUnknown Directness = iota
	Direct
	Indirect
)

// Conditionality tells whether the branch may fall through.
type Conditionality uint8

const (
	ConditionalityUnknown Conditionality = iota
	Conditional
	Unconditional
)

// Direction is the observed dynamic direction of a branch.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	AlwaysTaken
	AlwaysNotTaken
	DynamicDirection
)

// Indirectness is the observed dynamic target behavior of a branch.
type Indirectness uint8

const (
	IndirectnessUnknown Indirectness = iota
	BehavesIndirect
	BehavesDirect
)

// Canonical spellings. These are what the dumps emit.
var (
	branchTypeNames = map[BranchType]string{
		TypeUnknown: "N/A",
		TypeReturn:  "RET",
		TypeJump:    "JMP",
		TypeCall:    "CALL",
	}
	directnessNames = map[Directness]string{
		DirectnessUnknown: "N/A",
		Direct:            "DIR",
		Indirect:          "IND",
	}
	conditionalityNames = map[Conditionality]string{
		ConditionalityUnknown: "N/A",
		Conditional:           "CND",
		Unconditional:         "UCD",
	}
	directionNames = map[Direction]string{
		DirectionUnknown: "N/A",
		AlwaysTaken:      "AT",
		AlwaysNotTaken:   "ANT",
		DynamicDirection: "DYN",
	}
	indirectnessNames = map[Indirectness]string{
		IndirectnessUnknown: "N/A",
		BehavesIndirect:     "IND",
		BehavesDirect:       "DIR",
	}
)

// Reverse lookups, with the long-form aliases some converters write.
var (
	branchTypeTokens     = reverse(branchTypeNames, nil)
	directnessTokens     = reverse(directnessNames, map[string]Directness{"DIRECT": Direct, "INDIRECT": Indirect})
	conditionalityTokens = reverse(conditionalityNames, map[string]Conditionality{
		"COND": Conditional, "CONDITIONAL": Conditional,
		"UNCOND": Unconditional, "UNCONDITIONAL": Unconditional,
	})
	directionTokens    = reverse(directionNames, nil)
	indirectnessTokens = reverse(indirectnessNames, nil)
)

func reverse[E comparable](names map[E]string, aliases map[string]E) map[string]E {
	m := make(map[string]E, len(names)+len(aliases))
	for e, s := range names {
		m[s] = e
	}
	for s, e := range aliases {
		m[s] = e
	}
	return m
}

func enumText[E ~uint8](names map[E]string, v E) ([]byte, error) {
	s, ok := names[v]
	if !ok {
		return nil, fmt.Errorf("%w: %T(%d)", ErrUndefinedValue, v, uint8(v))
	}
	return []byte(s), nil
}

func enumString[E ~uint8](names map[E]string, v E) string {
	if s, ok := names[v]; ok {
		return s
	}
	return fmt.Sprintf("%T(%d)", v, uint8(v))
}

func (t BranchType) MarshalText() ([]byte, error) { return enumText(branchTypeNames, t) }
func (t BranchType) String() string               { return enumString(branchTypeNames, t) }

func (d Directness) MarshalText() ([]byte, error) { return enumText(directnessNames, d) }
func (d Directness) String() string               { return enumString(directnessNames, d) }

func (c Conditionality) MarshalText() ([]byte, error) { return enumText(conditionalityNames, c) }
func (c Conditionality) String() string               { return enumString(conditionalityNames, c) }

func (d Direction) MarshalText() ([]byte, error) { return enumText(directionNames, d) }
func (d Direction) String() string               { return enumString(directionNames, d) }

func (i Indirectness) MarshalText() ([]byte, error) { return enumText(indirectnessNames, i) }
func (i Indirectness) String() string               { return enumString(indirectnessNames, i) }

// BranchClass holds the statically encoded attributes of a branch.
type BranchClass struct {
	Type           BranchType
	Directness     Directness
	Conditionality Conditionality
}

// ParseBranchClass parses a "+"-joined class token such as "JMP+DIR+CND".
// Sub-token order is free. A return is always indirect.
func ParseBranchClass(token string) (BranchClass, error) {
	var c BranchClass
	for _, sub := range splitAttributes(token) {
		if v, ok := branchTypeTokens[sub]; ok {
			c.Type = v
			continue
		}
		if v, ok := directnessTokens[sub]; ok {
			c.Directness = v
			continue
		}
		if v, ok := conditionalityTokens[sub]; ok {
			c.Conditionality = v
			continue
		}
		return BranchClass{}, fmt.Errorf("%w: %q in branch class %q", ErrInvalidToken, sub, token)
	}
	if c.Type == TypeReturn {
		c.Directness = Indirect
	}
	return c, nil
}

func (c BranchClass) String() string {
	return c.Type.String() + "+" + c.Directness.String() + "+" + c.Conditionality.String()
}

// BranchBehavior holds the dynamically observed attributes of a branch.
type BranchBehavior struct {
	Direction    Direction
	Indirectness Indirectness
}

// ParseBranchBehavior parses a "+"-joined behavior token such as "DYN+DIR".
func ParseBranchBehavior(token string) (BranchBehavior, error) {
	var b BranchBehavior
	for _, sub := range splitAttributes(token) {
		if v, ok := directionTokens[sub]; ok {
			b.Direction = v
			continue
		}
		if v, ok := indirectnessTokens[sub]; ok {
			b.Indirectness = v
			continue
		}
		return BranchBehavior{}, fmt.Errorf("%w: %q in branch behavior %q", ErrInvalidToken, sub, token)
	}
	return b, nil
}

func (b BranchBehavior) String() string {
	return b.Direction.String() + "+" + b.Indirectness.String()
}

func splitAttributes(token string) []string {
	return strings.FieldsFunc(token, func(r rune) bool { return r == '+' })
}
