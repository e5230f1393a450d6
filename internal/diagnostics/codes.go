package diagnostics

// Code is the stable identifier of an issue kind. Codes never change once
// published; renames get a new code and the old one is retired.
type Code string

const (
	// Resolution
	UnknownSymbol        Code = "unknown-symbol"
	UnknownClass         Code = "unknown-class"
	UnknownFunction      Code = "unknown-function"
	UnknownMethod        Code = "unknown-method"
	UnknownProperty      Code = "unknown-property"
	UnknownConstant      Code = "unknown-constant"
	VisibilityViolation  Code = "visibility-violation"
	AmbiguousMethod      Code = "ambiguous-method"

	// Typing
	InvalidArgument            Code = "invalid-argument"
	TooFewArguments            Code = "too-few-arguments"
	TooManyArguments           Code = "too-many-arguments"
	NamedArgumentMismatch      Code = "named-argument-mismatch"
	InvalidReturn              Code = "invalid-return"
	InvalidThrow               Code = "invalid-throw"
	InvalidArrayAccess         Code = "invalid-array-access"
	NullDereference            Code = "null-dereference"
	PossiblyNullDereference    Code = "possibly-null-dereference"
	MissingArrayKey            Code = "missing-array-key"
	PossiblyUndefinedArrayKey  Code = "possibly-undefined-array-key"
	RedundantCast              Code = "redundant-cast"
	RedundantCondition         Code = "redundant-condition"
	ImpossibleCondition        Code = "impossible-condition"
	RedundantElvis             Code = "redundant-elvis"
	RedundantNullCoalesce      Code = "redundant-null-coalesce"
	InvalidMethodCall          Code = "invalid-method-call"
	PossiblyInvalidMethodCall  Code = "possibly-invalid-method-call"
	InvalidStaticMethodCall    Code = "invalid-static-method-call"
	PossiblyUndefinedVariable  Code = "possibly-undefined-variable"
	UndefinedVariable          Code = "undefined-variable"
	InvalidOperand             Code = "invalid-operand"
	InvalidDocblockType        Code = "invalid-docblock-type"

	// Syntax
	ParseError        Code = "parse-error"
	ExpressionTooDeep Code = "expression-too-deep"

	// Structural soundness
	CircularInheritance Code = "circular-inheritance"
	DuplicateMember     Code = "duplicate-member"
	TraitConflict       Code = "trait-conflict"
	DuplicateClassLike  Code = "duplicate-class-like"

	// Analyzer limits
	ConditionTooComplex   Code = "condition-too-complex"
	LoopIterationCap      Code = "loop-iteration-cap-exceeded"
)

// levels maps each code to its default level. Codes absent from the map
// report as errors.
var levels = map[Code]Level{
	RedundantCondition:        LevelNote,
	ImpossibleCondition:       LevelNote,
	RedundantElvis:            LevelNote,
	RedundantNullCoalesce:     LevelNote,
	RedundantCast:             LevelNote,
	ConditionTooComplex:       LevelNote,
	LoopIterationCap:          LevelNote,
	PossiblyInvalidMethodCall: LevelWarning,
	PossiblyNullDereference:   LevelWarning,
	PossiblyUndefinedVariable: LevelWarning,
	PossiblyUndefinedArrayKey: LevelWarning,
	AmbiguousMethod:           LevelWarning,
}

func (c Code) Level() Level {
	if l, ok := levels[c]; ok {
		return l
	}
	return LevelError
}
