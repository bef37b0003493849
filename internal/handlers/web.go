package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/middlewares"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
	"github.com/sbilibin2017/gw-item-tracker/internal/sessions"
)

// NewIndexHandler sends signed-in browsers to the dashboard and everyone else to the login page.
func NewIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s := sessions.FromContext(r.Context()); s != nil {
			if token, ok := s.Get(sessions.KeyToken); ok && token != "" {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}

// signIn rotates the session and stores the new identity in it.
func signIn(w http.ResponseWriter, r *http.Request, sm SessionManager, user *models.User, token, flash string) {
	ctx := r.Context()
	s := sessions.FromContext(ctx)
	if s == nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := sm.Renew(ctx, s); err != nil {
		logger.FromContext(ctx).Errorw("failed to renew session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.Set(sessions.KeyToken, token)
	s.Set(sessions.KeyUserID, user.ID)
	s.Set(sessions.KeyUserName, user.Name)

	redirectWithFlash(w, r, sm, sessions.FlashSuccess, flash, "/dashboard")
}

// formError re-renders page with the error as a flash, or fails with 500
// when err carries no client-safe category.
func formError(w http.ResponseWriter, r *http.Request, rd *Renderer, page string, data PageData, err error) {
	if !errors.Is(err, apperrors.ErrValidation) && !errors.Is(err, apperrors.ErrAuthentication) {
		logger.FromContext(r.Context()).Errorw("internal server error", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if s := sessions.FromContext(r.Context()); s != nil {
		s.AddFlash(sessions.FlashError, apperrors.Message(err, "Request failed"))
	}
	rd.Render(w, r, http.StatusOK, page, data)
}

// NewLoginPageHandler serves and processes the login form.
func NewLoginPageHandler(svc Loginer, sm SessionManager, rd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rd.Render(w, r, http.StatusOK, "login.html", PageData{})
			return
		}

		email, password := r.PostFormValue("email"), r.PostFormValue("password")
		user, token, err := svc.Login(r.Context(), email, password)
		if err != nil {
			formError(w, r, rd, "login.html", PageData{Email: email}, err)
			return
		}

		signIn(w, r, sm, user, token, "Login successful!")
	}
}

// NewRegisterPageHandler serves and processes the registration form. All
// three fields are required here.
func NewRegisterPageHandler(svc Registerer, sm SessionManager, rd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rd.Render(w, r, http.StatusOK, "register.html", PageData{})
			return
		}

		email := r.PostFormValue("email")
		password := r.PostFormValue("password")
		name := r.PostFormValue("name")
		data := PageData{Email: email, Name: name}

		if email == "" || password == "" || name == "" {
			formError(w, r, rd, "register.html", data, apperrors.ErrFieldsRequired)
			return
		}

		user, token, err := svc.Register(r.Context(), email, password, name)
		if err != nil {
			formError(w, r, rd, "register.html", data, err)
			return
		}

		signIn(w, r, sm, user, token, "Registration successful!")
	}
}

// NewLogoutHandler clears the session and returns to the login page.
func NewLogoutHandler(sm SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s := sessions.FromContext(r.Context()); s != nil {
			if err := sm.Renew(r.Context(), s); err != nil {
				logger.FromContext(r.Context()).Errorw("failed to renew session", "error", err)
			}
		}
		redirectWithFlash(w, r, sm, sessions.FlashInfo, "You have been logged out", "/login")
	}
}

// NewDashboardHandler lists the signed-in user's items.
func NewDashboardHandler(svc ItemLister, rd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.UserFromContext(r.Context())

		items, err := svc.ListForOwner(r.Context(), user.ID)
		if err != nil {
			logger.FromContext(r.Context()).Errorw("failed to list items", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		rd.Render(w, r, http.StatusOK, "dashboard.html", PageData{UserName: user.Name, Items: items})
	}
}

// NewCreateItemPageHandler serves and processes the new item form.
func NewCreateItemPageHandler(svc ItemCreator, sm SessionManager, rd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.UserFromContext(r.Context())

		if r.Method != http.MethodPost {
			rd.Render(w, r, http.StatusOK, "item_form.html", PageData{UserName: user.Name})
			return
		}

		title, description := r.PostFormValue("title"), r.PostFormValue("description")
		if _, err := svc.Create(r.Context(), user.ID, title, description); err != nil {
			data := PageData{UserName: user.Name, Item: &models.Item{Title: title, Description: description}}
			formError(w, r, rd, "item_form.html", data, err)
			return
		}

		redirectWithFlash(w, r, sm, sessions.FlashSuccess, "Item created successfully!", "/dashboard")
	}
}

// itemAccessError redirects to the dashboard for missing or foreign items.
// It reports whether err was handled that way.
func itemAccessError(w http.ResponseWriter, r *http.Request, sm SessionManager, err error) bool {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAuthorization) {
		redirectWithFlash(w, r, sm, sessions.FlashError, apperrors.Message(err, "Item not found"), "/dashboard")
		return true
	}
	return false
}

// NewEditItemPageHandler serves and processes the edit form of an owned item.
func NewEditItemPageHandler(getter ItemGetter, updater ItemUpdater, sm SessionManager, rd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.UserFromContext(r.Context())
		itemID := chi.URLParam(r, "id")

		item, err := getter.Get(r.Context(), itemID, user.ID)
		if err != nil {
			if !itemAccessError(w, r, sm, err) {
				logger.FromContext(r.Context()).Errorw("failed to load item", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		if r.Method != http.MethodPost {
			rd.Render(w, r, http.StatusOK, "item_form.html", PageData{UserName: user.Name, Item: item})
			return
		}

		title := r.PostFormValue("title")
		description := r.PostFormValue("description")
		if strings.TrimSpace(title) == "" {
			formError(w, r, rd, "item_form.html", PageData{UserName: user.Name, Item: item}, apperrors.ErrTitleRequired)
			return
		}

		_, err = updater.Update(r.Context(), itemID, user.ID, models.ItemUpdate{
			Title:       &title,
			Description: &description,
		})
		if err != nil {
			if itemAccessError(w, r, sm, err) {
				return
			}
			formError(w, r, rd, "item_form.html", PageData{UserName: user.Name, Item: item}, err)
			return
		}

		redirectWithFlash(w, r, sm, sessions.FlashSuccess, "Item updated successfully!", "/dashboard")
	}
}

// NewDeleteItemPageHandler deletes an owned item and returns to the dashboard.
func NewDeleteItemPageHandler(svc ItemDeleter, sm SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewares.UserFromContext(r.Context())

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
			if !itemAccessError(w, r, sm, err) {
				logger.FromContext(r.Context()).Errorw("failed to delete item", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		redirectWithFlash(w, r, sm, sessions.FlashSuccess, "Item deleted successfully!", "/dashboard")
	}
}
