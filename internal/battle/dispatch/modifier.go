package dispatch

// Fixed-point modifiers use a 4096 scale: 4096 is ×1, 6144 is ×1.5.
const ModifierBase = 4096

// Modifier converts num/den to the 4096 scale, truncating.
func Modifier(num, den int) int {
	if den <= 0 {
		return ModifierBase
	}
	return num * ModifierBase / den
}

// Chain folds next into prev, rounding half up.
func Chain(prev, next int) int {
	return (prev*next + 2048) >> 12
}

// Apply scales value by a 4096-based modifier, rounding half down.
func Apply(value, modifier int) int {
	return (value*modifier + 2048 - 1) / ModifierBase
}

// Modify scales value by num/den the way every multiplier in the damage
// pipeline does.
func Modify(value, num, den int) int {
	return Apply(value, Modifier(num, den))
}
