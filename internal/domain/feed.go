package domain

import "fmt"

// Origin различает локальные демо-посты и посты из хранилища.
type Origin int

const (
	// OriginPersisted - пост хранится в хранилище документов.
	OriginPersisted Origin = iota
	// OriginEphemeral - демо-пост, живет только в памяти процесса.
	OriginEphemeral
)

func (o Origin) String() string {
	if o == OriginEphemeral {
		return "ephemeral"
	}
	return "persisted"
}

func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Origin) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ephemeral":
		*o = OriginEphemeral
	case "persisted":
		*o = OriginPersisted
	default:
		return fmt.Errorf("unknown origin %q", text)
	}
	return nil
}

// FeedEntry - элемент ленты. Чтение одинаково для обоих вариантов.
type FeedEntry struct {
	Origin      Origin  `json:"origin"`
	Post        *Post   `json:"post"`
	AuthorPhoto *string `json:"authorPhoto,omitempty"`
}

func (e FeedEntry) ID() string      { return e.Post.ID }
func (e FeedEntry) Ephemeral() bool { return e.Origin == OriginEphemeral }
func (e FeedEntry) LikeCount() int  { return len(e.Post.Likes) }

func (e FeedEntry) LikedBy(uid string) bool {
	return Contains(e.Post.Likes, uid)
}
