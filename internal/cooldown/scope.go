package cooldown

import "strings"

// Scope selects which identifiers partition a cooldown window.
type Scope string

const (
	PerUser         Scope = "per_user"
	PerUserPerGuild Scope = "per_user_per_guild"
	PerGuild        Scope = "per_guild"
	Global          Scope = "global"
)

// Scopes lists every recognized scope.
var Scopes = []Scope{PerUser, PerUserPerGuild, PerGuild, Global}

// Valid reports whether s is one of the recognized scopes.
func (s Scope) Valid() bool {
	switch s {
	case PerUser, PerUserPerGuild, PerGuild, Global:
		return true
	}
	return false
}

// RequiresGuild reports whether keys for s need a guild id.
func (s Scope) RequiresGuild() bool {
	return s == PerUserPerGuild || s == PerGuild
}

func (s Scope) String() string { return string(s) }

// ParseScope maps a user-facing name ("user", "per_user", "PerGuild", ...) to a Scope.
func ParseScope(name string) (Scope, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	switch n {
	case "per_user", "peruser", "user":
		return PerUser, nil
	case "per_user_per_guild", "peruserperguild", "user_guild", "member":
		return PerUserPerGuild, nil
	case "per_guild", "perguild", "guild":
		return PerGuild, nil
	case "global":
		return Global, nil
	}
	return "", &UnknownScopeError{Scope: Scope(name)}
}

// Key derives the cache and store key for a request. The layout is fixed:
//
//	per_user            {user}-{action}
//	per_user_per_guild  {user}-{guild}-{action}
//	per_guild           {guild}-{action}
//	global              {action}
func Key(scope Scope, userID, actionID, guildID string) (string, error) {
	if !scope.Valid() {
		return "", &UnknownScopeError{Scope: scope}
	}
	if scope.RequiresGuild() && guildID == "" {
		return "", &InvalidScopeError{Scope: scope}
	}

	switch scope {
	case PerUser:
		return userID + "-" + actionID, nil
	case PerUserPerGuild:
		return userID + "-" + guildID + "-" + actionID, nil
	case PerGuild:
		return guildID + "-" + actionID, nil
	default:
		return actionID, nil
	}
}
