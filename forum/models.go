package forum

import "time"

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID        int64          `json:"id"`
	Author    User           `json:"author"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	Reactions map[string]int `json:"reactions,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Author    User      `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type newPost struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type newComment struct {
	Body string `json:"body"`
}

type newReaction struct {
	Kind string `json:"kind"`
}
