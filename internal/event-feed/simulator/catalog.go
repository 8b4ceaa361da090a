package simulator

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// Esportes simulados e o par fixo de times de cada um
var (
	sports = []string{"Football", "Basketball", "Tennis", "Cricket"}
	teams  = [][2]string{
		{"TeamA", "TeamB"},
		{"TeamC", "TeamD"},
		{"TeamE", "TeamF"},
		{"TeamG", "TeamH"},
	}
)

var (
	baseOdd = decimal.RequireFromString("1.2")
	maxOdd  = decimal.RequireFromString("3.0")
)

// DynamicOdds: quem está na frente paga menos. Com diferença d a favor,
// odd = base + (max-base)/(d+2); contra, odd = max - (max-base)/(d+2).
// Duas casas decimais.
func DynamicOdds(team1, team2 string, score1, score2 int) map[string]decimal.Decimal {
	spread := maxOdd.Sub(baseOdd)
	diff := score1 - score2

	var o1, o2 decimal.Decimal
	if diff > 0 {
		o1 = baseOdd.Add(spread.Div(decimal.NewFromInt(int64(diff + 2))))
	} else {
		o1 = maxOdd.Sub(spread.Div(decimal.NewFromInt(int64(-diff + 2))))
	}
	if diff < 0 {
		o2 = baseOdd.Add(spread.Div(decimal.NewFromInt(int64(-diff + 2))))
	} else {
		o2 = maxOdd.Sub(spread.Div(decimal.NewFromInt(int64(diff + 2))))
	}
	return map[string]decimal.Decimal{team1: o1.Round(2), team2: o2.Round(2)}
}

// Increment sorteia quantos pontos a jogada vale em cada esporte
func Increment(sport string, rng *rand.Rand) int {
	switch sport {
	case "Football":
		if rng.Float64() < 0.3 {
			return 1
		}
		return 0
	case "Basketball":
		return rng.Intn(3)
	case "Tennis":
		if rng.Float64() < 0.5 {
			return 1
		}
		return 0
	case "Cricket":
		return rng.Intn(7)
	}
	return 0
}
