package domain

import "time"

// Post представляет пост в ленте.
type Post struct {
	ID         string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AuthorID   string     `json:"userId" gorm:"type:varchar(255);not null;index"`
	AuthorName string     `json:"username" gorm:"type:varchar(255);not null"`
	Text       string     `json:"text" gorm:"type:text;not null"`
	ImageURL   *string    `json:"imageUrl" gorm:"type:text"`
	Likes      []string   `json:"likes" gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt  time.Time  `json:"timestamp" gorm:"not null;default:now();index"`
	Comments   []*Comment `json:"comments" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID         string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID     string    `json:"-" gorm:"type:uuid;not null;index"`
	AuthorID   string    `json:"userId" gorm:"type:varchar(255);not null"`
	AuthorName string    `json:"username" gorm:"type:varchar(255);not null"`
	Text       string    `json:"text" gorm:"type:varchar(2000);not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// UserProfile - профиль пользователя, ключ совпадает с идентификатором из auth-провайдера.
type UserProfile struct {
	ID          string   `json:"id" gorm:"type:varchar(255);primary_key"`
	DisplayName string   `json:"displayName" gorm:"type:varchar(255)"`
	Email       string   `json:"email" gorm:"type:varchar(255)"`
	PhotoURL    *string  `json:"photoURL" gorm:"type:text"`
	Followers   []string `json:"followers" gorm:"serializer:json;type:jsonb;not null"`
	Following   []string `json:"following" gorm:"serializer:json;type:jsonb;not null"`
}

type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
	// NotificationRetweet приходит только из уже сохраненных данных; сервис его не создает.
	NotificationRetweet NotificationKind = "retweet"
)

// Notification - уведомление. После создания меняется только флаг Read.
type Notification struct {
	ID          string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecipientID string           `json:"userId" gorm:"type:varchar(255);not null;index"`
	ActorName   string           `json:"fromUser" gorm:"type:varchar(255);not null"`
	Kind        NotificationKind `json:"type" gorm:"type:varchar(20);not null"`
	PostID      *string          `json:"postId,omitempty" gorm:"type:uuid"`
	Read        bool             `json:"read" gorm:"not null;default:false"`
	CreatedAt   time.Time        `json:"timestamp" gorm:"not null;default:now()"`
}

// ChatMessage - сообщение чат-сессии. Сообщения только добавляются.
type ChatMessage struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID string    `json:"-" gorm:"type:varchar(255);not null;index"`
	Sender    string    `json:"sender" gorm:"type:varchar(255);not null"`
	SenderID  string    `json:"uid" gorm:"type:varchar(255);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"not null;default:now();index"`
	// Seq - порядок вставки; второй ключ сортировки при равных CreatedAt.
	Seq int64 `json:"-" gorm:"autoIncrement;not null;index"`
}

// Contains проверяет, входит ли id в множество set.
func Contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// TableName implements the GORM tabler interface.
func (UserProfile) TableName() string { return "users" }

// TableName implements the GORM tabler interface.
func (ChatMessage) TableName() string { return "chat_messages" }
