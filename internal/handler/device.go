package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// deviceCookie identifies a browser across visits, playing the role its
// persisted client-side state would otherwise play.
const deviceCookie = "sfg_device"

type deviceIDKey struct{}

// DeviceIDFromContext returns the device ID set by DeviceCookie, or "".
func DeviceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return id
	}
	return ""
}

// DeviceCookie ensures every request carries a device identity cookie,
// minting a UUID for first-time visitors.
func DeviceCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(deviceCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), deviceIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
