package joinrequests

// chatSet filters join requests by chat. An empty set matches every chat.
type chatSet map[int64]struct{}

func newChatSet(ids []int64) chatSet {
	s := make(chatSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s chatSet) contains(chatID int64) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[chatID]
	return ok
}
