package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RatingRequest struct {
	Type string `json:"type"`
}

type ReportRequest struct {
	Reason string `json:"reason"`
}

type VisibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

type SpotifyImportRequest struct {
	PlaylistURL string `json:"playlistUrl"`
	IsPublic    bool   `json:"isPublic"`
}
