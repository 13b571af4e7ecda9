package config

// CategoryWeights orders command categories in /help; unknown categories sort last.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"📢 Utilities":    10,
	"🎲 Gameplay":     20,
	"🛠️ Maintenance": 60,
}

// CategoryWeight returns the sort weight of category.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 100
}
