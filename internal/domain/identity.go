package domain

// Identity - текущий пользователь. Передается явно в каждую операцию,
// которой нужен автор действия.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
}

// Label возвращает имя, которое сохраняется в постах, комментариях и сообщениях.
func (i Identity) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return "You"
}

// Anonymous сообщает, что пользователь не вошел в систему.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}
