package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/temoins-console/apiclient"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/jrsteele09/temoins-console/token/jwt"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	maxRequestBody  = 1 << 20
)

// Token request outcomes, as reported to metrics
const (
	outcomeIssued   = "issued"
	outcomeRejected = "rejected"
	outcomeInvalid  = "invalid"
)

var errWrongTokenType = errors.New("wrong token type")

// TokenObtain exchanges email and password for an access/refresh pair.
// A malformed body is 400; unknown, inactive or wrong credentials are 401.
func (s *Server) TokenObtain() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &req); err != nil || req.Email == "" || req.Password == "" {
			s.requests.WithLabelValues("obtain", outcomeInvalid).Inc()
			writeJSON(w, http.StatusBadRequest, fieldErrors(map[string]string{"email": req.Email, "password": req.Password}))
			return
		}

		user, err := s.users.GetByEmail(req.Email)
		if err != nil || !user.Active || !user.CheckPassword(req.Password) {
			s.requests.WithLabelValues("obtain", outcomeRejected).Inc()
			writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
			return
		}

		access, refresh, err := s.issue(user)
		if err != nil {
			log.Error().Err(err).Str("user", user.Email).Msg("failed to issue token pair")
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		if err := s.users.SetLastLogin(user.Email); err != nil {
			log.Warn().Err(err).Str("user", user.Email).Msg("failed to record last login")
		}

		s.requests.WithLabelValues("obtain", outcomeIssued).Inc()
		writeJSON(w, http.StatusOK, apiclient.TokenPair{Access: access, Refresh: refresh})
	}
}

// TokenRefresh issues a new access token for a valid refresh token. The refresh token
// itself is not rotated.
func (s *Server) TokenRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
			s.requests.WithLabelValues("refresh", outcomeInvalid).Inc()
			writeJSON(w, http.StatusBadRequest, fieldErrors(map[string]string{"refresh": req.Refresh}))
			return
		}

		claims, err := s.verify(req.Refresh, jwt.TokenTypeRefresh)
		if err == nil {
			if jti, _ := claims["jti"].(string); s.revoked.IsRevoked(jti) {
				err = errors.New("token revoked")
			}
		}
		if err != nil {
			log.Debug().Err(err).Msg("rejected refresh token")
			s.requests.WithLabelValues("refresh", outcomeRejected).Inc()
			writeTokenNotValid(w)
			return
		}

		userID, _ := claims["user_id"].(string)
		user, err := s.users.GetByID(userID)
		if err != nil || !user.Active {
			s.requests.WithLabelValues("refresh", outcomeRejected).Inc()
			writeTokenNotValid(w)
			return
		}

		access, err := s.issueAccess(user)
		if err != nil {
			log.Error().Err(err).Str("user", user.Email).Msg("failed to issue access token")
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		s.requests.WithLabelValues("refresh", outcomeIssued).Inc()
		writeJSON(w, http.StatusOK, map[string]string{"access": access})
	}
}

// verify checks the signature, expiry and token_type of rawToken.
func (s *Server) verify(rawToken, tokenType string) (jwtlib.MapClaims, error) {
	claims, err := token.Verify(s.signer, rawToken, jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return nil, err
	}
	if got, _ := claims["token_type"].(string); got != tokenType {
		return nil, fmt.Errorf("%w: %q", errWrongTokenType, got)
	}
	return claims, nil
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
}

// fieldErrors builds a REST framework validation body for the empty fields.
func fieldErrors(fields map[string]string) map[string][]string {
	out := make(map[string][]string)
	for name, value := range fields {
		if value == "" {
			out[name] = []string{"This field is required."}
		}
	}
	if len(out) == 0 {
		out["non_field_errors"] = []string{"Invalid request body."}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeTokenNotValid(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}
