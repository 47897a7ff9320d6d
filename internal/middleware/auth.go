package middleware

import (
	"net/http"
	"strings"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

// RequireAuth validates the bearer token and puts the caller's identity in
// the request context. Clients without a valid session get 401.
func RequireAuth(sessions *store.SessionStore, members *store.MemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := sessions.GetByToken(token)
			if err != nil || sess == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			member, err := members.GetByID(sess.MemberID)
			if err != nil || member == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ident := auth.Identity{
				MemberID:  member.ID,
				Role:      member.Role,
				SessionID: sess.ID,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
		})
	}
}

// RequireGuardian rejects callers who are not guardians.
func RequireGuardian(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := auth.FromContext(r.Context())
		if !ok || ident.Role != model.RoleGuardian {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(tok)
	}
	return ""
}
