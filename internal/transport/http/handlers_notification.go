package httptransport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"siterisk/internal/identity"
	"siterisk/internal/notification"
	"siterisk/pkg/apperr"
	"siterisk/pkg/platform/httputil"
)

// NotificationService is the slice of the notification feed the
// transport layer depends on.
type NotificationService interface {
	List(ctx context.Context, userType, userEmail string) (notification.List, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userType string) (int64, error)
	UnreadCount(ctx context.Context, userType, userEmail string) (notification.UnreadCountResponse, error)
}

// NotificationHandler wires the notification feed endpoints.
type NotificationHandler struct {
	service NotificationService
	logger  *slog.Logger
}

func NewNotificationHandler(service NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// Register mounts the notification endpoints.
func (h *NotificationHandler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Put("/notifications/{notificationID}/read", h.HandleMarkRead)
	r.Put("/notifications/mark-all-read", h.HandleMarkAllRead)
	r.Get("/notifications/unread-count", h.HandleUnreadCount)
}

// HandleList handles GET /notifications requests.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userType, err := notificationUserType(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	email, err := notificationEmail(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.service.List(ctx, userType, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// HandleMarkRead handles PUT /notifications/{notificationID}/read requests.
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "notificationID")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.MarkRead(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Notification marked as read",
	})
}

// HandleMarkAllRead handles PUT /notifications/mark-all-read requests.
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userType, err := notificationUserType(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.service.MarkAllRead(ctx, userType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("Marked %d notifications as read", updated),
		"updated_count": updated,
	})
}

// HandleUnreadCount handles GET /notifications/unread-count requests.
func (h *NotificationHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userType, err := notificationUserType(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	email, err := notificationEmail(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.service.UnreadCount(ctx, userType, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, count)
}

func notificationUserType(r *http.Request) (string, error) {
	userType := strings.ToUpper(r.URL.Query().Get("user_type"))
	if userType != "PI" && userType != "SD" {
		return "", apperr.New(apperr.CodeBadRequest, "user_type must be 'PI' or 'SD'")
	}
	return userType, nil
}

func notificationEmail(ctx context.Context) (string, error) {
	user, _ := identity.FromContext(ctx)
	if user.Email == "" {
		return "", apperr.New(apperr.CodeBadRequest, "User email not found in token")
	}
	return strings.ToLower(user.Email), nil
}
