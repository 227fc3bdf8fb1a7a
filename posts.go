package main

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const postSelect = `
	SELECT p.id, p.content, p.author_id, p.created_at,
		u.id, u.name, u.bio, u.created_at
	FROM posts p
	JOIN users u ON u.id = p.author_id`

// Newest first; seq breaks ties between posts created in the same instant.
const postOrder = ` ORDER BY p.created_at DESC, p.seq DESC`

func (s *Store) CreatePost(ctx context.Context, authorID, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	post := &Post{
		ID:        uuid.NewString(),
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO posts (id, content, author_id, created_at)
		VALUES (?, ?, ?, ?)`), post.ID, post.Content, post.AuthorID, post.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, "inserting post")
	}

	return post, nil
}

// ListPosts returns the global feed with each post's author attached.
func (s *Store) ListPosts(ctx context.Context) ([]Post, error) {
	return s.queryPosts(ctx, postSelect+postOrder)
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	return s.queryPosts(ctx, postSelect+` WHERE p.author_id = ?`+postOrder, authorID)
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var post Post
		var author Author
		err := rows.Scan(&post.ID, &post.Content, &post.AuthorID, &post.CreatedAt,
			&author.ID, &author.Name, &author.Bio, &author.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning post")
		}
		post.Author = &author
		posts = append(posts, post)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating posts")
	}

	return posts, nil
}
