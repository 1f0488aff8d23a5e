package shared

import (
	"context"
	"net/http"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Flash queues a message on the request session, if there is one.
func Flash(ctx context.Context, kind, message string) {
	if sess := SessionFromContext(ctx); sess != nil {
		sess.AddFlash(FlashMessage{Kind: kind, Message: message})
	}
}

// RedirectWithFlash implements post/redirect/get: the message is shown once on
// the page at location.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	Flash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
