package domain

import "time"

// Token is a bearer secret authorizing admin mutations through the API.
type Token struct {
	ID        int64
	UserID    int64
	Secret    string
	CreatedAt time.Time
}
