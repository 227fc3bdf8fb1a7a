package main

import (
	"errors"
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Server is active!"})
}

func (a *App) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.ListPosts(r.Context())
	if err != nil {
		a.renderError(w, r, err, "Failed to fetch posts.")
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: posts})
}

func (a *App) CreatePost(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Post content is required.")
		return
	}

	post, err := a.store.CreatePost(r.Context(), user.ID, req.Content)
	switch {
	case errors.Is(err, ErrEmptyContent):
		a.renderError(w, r, err, "Post content is required.")
		return
	case errors.Is(err, ErrUserNotFound):
		a.renderError(w, r, err, "No User found.")
		return
	case err != nil:
		a.renderError(w, r, err, "Failed to create post. Try again later.")
		return
	}
	post.Author = user.Author()

	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: post, Message: "Post created successfully."})
}

func (a *App) Profile(w http.ResponseWriter, r *http.Request) {
	// Re-read so the profile reflects writes made since the gate ran.
	user, err := a.store.UserByID(r.Context(), currentUser(r).ID)
	if err != nil {
		a.renderError(w, r, err, "Failed to fetch profile.")
		return
	}
	if user == nil {
		a.renderError(w, r, ErrUserNotFound, "No User found.")
		return
	}

	posts, err := a.store.ListPostsByAuthor(r.Context(), user.ID)
	if err != nil {
		a.renderError(w, r, err, "Failed to fetch profile.")
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: Profile{Profile: user, Posts: posts}})
}

func (a *App) UserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.store.ListPostsByAuthor(r.Context(), currentUser(r).ID)
	if err != nil {
		a.renderError(w, r, err, "Failed to fetch posts.")
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: posts})
}

func (a *App) UpdateBio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bio string `json:"bio"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bio cannot be empty.")
		return
	}

	a.updateProfile(w, r, ProfileUpdate{Bio: &req.Bio}, "Bio updated successfully.")
}

func (a *App) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Bio   *string `json:"bio"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		a.renderError(w, r, err, "Invalid profile update.")
		return
	}

	upd := ProfileUpdate{Name: req.Name, Email: req.Email, Bio: req.Bio}
	a.updateProfile(w, r, upd, "Profile updated successfully.")
}

func (a *App) updateProfile(w http.ResponseWriter, r *http.Request, upd ProfileUpdate, success string) {
	user, err := a.store.UpdateProfile(r.Context(), currentUser(r).ID, upd)
	switch {
	case errors.Is(err, ErrEmptyBio):
		a.renderError(w, r, err, "Bio cannot be empty.")
		return
	case errors.Is(err, ErrEmailExists):
		a.renderError(w, r, err, "An account with this email already exists.")
		return
	case errors.Is(err, ErrUserNotFound):
		a.renderError(w, r, err, "No User found.")
		return
	case err != nil:
		a.renderError(w, r, err, "Failed to update profile. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user, Message: success})
}
