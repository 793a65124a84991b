package model

// Game identifies one of the supported HoYoverse titles.
type Game string

const (
	GameGenshin   Game = "genshin"
	GameStarRail  Game = "starrail"
	GameZZZ       Game = "zzz"
	GameHonkai3rd Game = "honkai3rd"
)

// AllGames lists every supported game in a stable order.
var AllGames = []Game{GameGenshin, GameStarRail, GameZZZ, GameHonkai3rd}

func (g Game) Valid() bool {
	switch g {
	case GameGenshin, GameStarRail, GameZZZ, GameHonkai3rd:
		return true
	}
	return false
}

// SupportsWebRedemption reports whether the remote service exposes a web
// redemption endpoint for the game. Honkai Impact 3rd codes can only be
// redeemed inside the game client, so the runner records them as
// manual-redemption entries instead of calling the redeem endpoint.
func (g Game) SupportsWebRedemption() bool {
	return g != GameHonkai3rd
}

// AutomationAction distinguishes the two automated actions a linked game
// can opt into.
type AutomationAction string

const (
	ActionCheckin AutomationAction = "checkin"
	ActionRedeem  AutomationAction = "redeem"
)

// EntryKind classifies one line of a per-run result record.
type EntryKind string

const (
	EntryCheckinSuccess EntryKind = "checkin_success"
	EntryRedeemSuccess  EntryKind = "redeem_success"
	EntryRedeemFailed   EntryKind = "redeem_failed"
	EntryManualRedeem   EntryKind = "manual_redeem"
	EntryError          EntryKind = "error"
)

// IsError reports whether the entry represents a failure the user must see
// regardless of their notification preferences. Terminal redemption
// failures count: they are surfaced exactly once and never retried.
func (k EntryKind) IsError() bool {
	return k == EntryError || k == EntryRedeemFailed
}
