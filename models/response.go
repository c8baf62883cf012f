package models

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	IsAdmin        bool   `json:"is_admin"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

type Owner struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	TrackCount int    `json:"trackCount"`
	IsPublic   bool   `json:"isPublic"`
	User       Owner  `json:"user"`
}

type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	ImageURL   string   `json:"image_url,omitempty"`
}

type PlaylistDetail struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	TrackCount  int     `json:"trackCount"`
	Tracks      []Track `json:"tracks"`
	User        Owner   `json:"user"`
	TotalTime   string  `json:"total_time"`
	IsPublic    bool    `json:"is_public"`
	CreatedAt   string  `json:"created_at,omitempty"`
	Likes       int     `json:"likes"`
	Dislikes    int     `json:"dislikes"`
}

// Ratings is the per-playlist rating snapshot; UserRating is "like",
// "dislike" or empty when the caller has not rated the playlist.
type Ratings struct {
	Likes      int    `json:"likes"`
	Dislikes   int    `json:"dislikes"`
	UserRating string `json:"user_rating"`
}

type Report struct {
	ID           string `json:"id"`
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Reason       string `json:"reason"`
	CreatedAt    string `json:"created_at"`
	Status       string `json:"status"`
}

type ImportResult struct {
	PlaylistID string `json:"playlist_id"`
	Title      string `json:"title"`
	TrackCount int    `json:"track_count"`
	IsPublic   bool   `json:"is_public"`
	ImageURL   string `json:"image_url"`
}
