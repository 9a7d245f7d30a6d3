package game

// Trait score bounds. Every dimension stays inside [TraitMin, TraitMax] after
// any update.
const (
	TraitMin = 0
	TraitMax = 100

	traitNeutral = 50
)

// NeutralTraits is the mid-range vector a new life starts with.
func NeutralTraits() TraitVector {
	return TraitVector{
		SensingOpenness:      traitNeutral,
		LiteralCommunication: traitNeutral,
		EmotionalSync:        traitNeutral,
		FocusGravity:         traitNeutral,
		SocialFriction:       traitNeutral,
	}
}

// ApplyDelta adds a partial delta to a trait vector, clamping every dimension
// to [TraitMin, TraitMax]. Pure: neither argument is modified, and dimension
// order does not matter.
func ApplyDelta(current TraitVector, delta TraitDelta) TraitVector {
	return TraitVector{
		SensingOpenness:      clampTrait(current.SensingOpenness + delta.SensingOpenness),
		LiteralCommunication: clampTrait(current.LiteralCommunication + delta.LiteralCommunication),
		EmotionalSync:        clampTrait(current.EmotionalSync + delta.EmotionalSync),
		FocusGravity:         clampTrait(current.FocusGravity + delta.FocusGravity),
		SocialFriction:       clampTrait(current.SocialFriction + delta.SocialFriction),
	}
}

// ClampTraits bounds a raw snapshot. Generator-supplied vectors pass through
// here before they ever reach persistent state.
func ClampTraits(v TraitVector) TraitVector {
	return TraitVector{
		SensingOpenness:      clampTrait(v.SensingOpenness),
		LiteralCommunication: clampTrait(v.LiteralCommunication),
		EmotionalSync:        clampTrait(v.EmotionalSync),
		FocusGravity:         clampTrait(v.FocusGravity),
		SocialFriction:       clampTrait(v.SocialFriction),
	}
}

func clampTrait(n int) int {
	if n < TraitMin {
		return TraitMin
	}
	if n > TraitMax {
		return TraitMax
	}
	return n
}
