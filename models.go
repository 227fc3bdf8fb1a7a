package main

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Author is the public part of a User shown next to posts.
type Author struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Author() *Author {
	return &Author{ID: u.ID, Name: u.Name, Bio: u.Bio, CreatedAt: u.CreatedAt}
}

type Post struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"-"`
	Author    *Author   `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileUpdate carries a partial profile change. A nil field is absent.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Bio   *string
}

type Profile struct {
	Profile *User  `json:"profile"`
	Posts   []Post `json:"posts"`
}
