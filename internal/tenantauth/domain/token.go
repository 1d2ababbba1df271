package domain

// TokenPair is the envelope returned to a Client or User on login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
	TokenType    string `json:"token_type"`
	APIServer    string `json:"api_server,omitempty"`
	AuthServer   string `json:"auth_server,omitempty"`
}

const TokenTypeBearer = "Bearer"
