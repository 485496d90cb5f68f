package tokenstore

// Key names a session value. The names match the keys the web console keeps in
// localStorage so both clients can share a backend issuing the same JWTs.
type Key string

const (
	AccessToken    Key = "accessToken"
	RefreshToken   Key = "refreshToken"
	UserRole       Key = "userRole"
	UserName       Key = "userName"
	TokenExpiry    Key = "tokenExpiry"
	LastActivity   Key = "lastActivity"
	IntendedRoute  Key = "intendedRoute"
	LogoutMessage  Key = "logoutMessage"
	ActiveMenuItem Key = "activemenuitem"
)

// Keys lists every key a Store may hold.
var Keys = []Key{
	AccessToken, RefreshToken, UserRole, UserName, TokenExpiry,
	LastActivity, IntendedRoute, LogoutMessage, ActiveMenuItem,
}

// SessionKeys are the keys removed by ClearSession. IntendedRoute, LogoutMessage and
// ActiveMenuItem survive so the next screen can still read them.
var SessionKeys = []Key{
	AccessToken, RefreshToken, UserRole, UserName, TokenExpiry, LastActivity,
}

// Store is the single source of truth for session state. Reads of an absent key return
// the empty string; no operation fails from the caller's point of view.
type Store interface {
	Get(key Key) string
	Set(key Key, value string)
	Clear(key Key)
	// ClearSession removes SessionKeys in one step.
	ClearSession()
}
