package devserver

import (
	"net/http"
)

// Temoin is a witness record as listed by the superadmin endpoint
type Temoin struct {
	ID     int    `json:"id"`
	Nom    string `json:"nom"`
	Region string `json:"region"`
	Statut string `json:"statut"`
}

type Region struct {
	Code string `json:"code"`
	Nom  string `json:"nom"`
}

// Fixed sample data
var (
	sampleTemoins = []Temoin{
		{ID: 1, Nom: "Awa Diallo", Region: "DK", Statut: "valide"},
		{ID: 2, Nom: "Mamadou Sow", Region: "TH", Statut: "en_attente"},
		{ID: 3, Nom: "Fatou Ndiaye", Region: "SL", Statut: "rejete"},
	}
	sampleRegions = []Region{
		{Code: "DK", Nom: "Dakar"},
		{Code: "TH", Nom: "Thiès"},
		{Code: "SL", Nom: "Saint-Louis"},
		{Code: "ZG", Nom: "Ziguinchor"},
	}
)

// listResponse is the paginated envelope of the REST framework
type listResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newListResponse[T any](items []T) listResponse[T] {
	return listResponse[T]{Count: len(items), Results: items}
}

func (s *Server) Temoins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newListResponse(sampleTemoins))
	}
}

func (s *Server) Regions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newListResponse(sampleRegions))
	}
}

// Me returns the account behind the access token.
func (s *Server) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		userID, _ := claims["user_id"].(string)
		user, err := s.users.GetByID(userID)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
