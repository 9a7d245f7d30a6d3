package normalize

import (
	"strings"

	"otherlife/internal/game"
)

// synthesize builds a deterministic turn from plain prose. The opening turn
// gets a birth scene; every later turn gets a generic continuation. Both
// always validate, so the pipeline's terminal stage cannot fail.
func (n *Normalizer) synthesize(raw string, prior PriorContext) *game.TurnResult {
	now := prior.now()
	date := now.Format("2006-01-02")
	clock := now.Format("15:04")

	if prior.OpeningTurn {
		traits := game.NeutralTraits()
		return &game.TurnResult{
			Message: strings.TrimSpace(raw),
			BirthInfo: &game.BirthInfo{
				Date:     date,
				Time:     clock,
				Location: "市人民医院",
			},
			CurrentTime: &game.CurrentTime{Date: date, Time: clock, Age: 0},
			Traits:      &traits,
			Options: []game.Option{
				{
					ID:          "A",
					Label:       "安静地观察周围",
					Consequence: "你变得更加专注和谨慎",
					TraitDelta:  game.TraitDelta{LiteralCommunication: 2, SocialFriction: -1},
				},
				{
					ID:          "B",
					Label:       "好奇地四处张望",
					Consequence: "你对世界充满好奇心",
					TraitDelta:  game.TraitDelta{SensingOpenness: 3, EmotionalSync: 1},
				},
			},
			Ability:  &game.Ability{Command: "/breathe", Description: "第一次呼吸"},
			TimeSpan: &game.TimeSpan{FromDate: date, FromTime: clock, ToDate: date, ToTime: clock},
		}
	}

	traits := game.TraitVector{
		SensingOpenness:      52,
		LiteralCommunication: 48,
		EmotionalSync:        51,
		FocusGravity:         49,
		SocialFriction:       50,
	}
	return &game.TurnResult{
		Message:     strings.TrimSpace(raw),
		CurrentTime: &game.CurrentTime{Date: date, Time: clock, Age: game.FlexInt(prior.Age)},
		Traits:      &traits,
		Options: []game.Option{
			{
				ID:          "A",
				Label:       "继续当前的行动",
				Consequence: "你坚持自己的选择",
				TraitDelta:  game.TraitDelta{LiteralCommunication: 1},
			},
			{
				ID:          "B",
				Label:       "尝试不同的方式",
				Consequence: "你变得更加开放",
				TraitDelta:  game.TraitDelta{SensingOpenness: 2},
			},
		},
		TimeSpan: &game.TimeSpan{FromDate: date, FromTime: clock, ToDate: date, ToTime: clock},
	}
}
