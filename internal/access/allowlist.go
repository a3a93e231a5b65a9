package access

import "strings"

// ChatIdentity is who sent an inbound message. ChatID 0 means the chat is
// unknown; Telegram never issues it.
type ChatIdentity struct {
	ChatID   int64
	Username string
}

// AllowList is built once at startup and never mutated afterwards.
type AllowList struct {
	chatIDs   map[int64]struct{}
	usernames map[string]struct{}
}

func NewAllowList(chatIDs []int64, usernames []string) *AllowList {
	a := &AllowList{
		chatIDs:   make(map[int64]struct{}, len(chatIDs)),
		usernames: make(map[string]struct{}, len(usernames)),
	}
	for _, id := range chatIDs {
		a.chatIDs[id] = struct{}{}
	}
	for _, u := range usernames {
		if n := NormalizeUsername(u); n != "" {
			a.usernames[n] = struct{}{}
		}
	}
	return a
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(username), "@"))
}

// IsAllowed reports whether id may ingest. The chat id is checked first; the
// username is only consulted when the chat is not listed.
func (a *AllowList) IsAllowed(id ChatIdentity) bool {
	if a == nil {
		return false
	}
	if id.ChatID != 0 {
		if _, ok := a.chatIDs[id.ChatID]; ok {
			return true
		}
	}
	if n := NormalizeUsername(id.Username); n != "" {
		_, ok := a.usernames[n]
		return ok
	}
	return false
}

func (a *AllowList) Empty() bool {
	return a == nil || (len(a.chatIDs) == 0 && len(a.usernames) == 0)
}
