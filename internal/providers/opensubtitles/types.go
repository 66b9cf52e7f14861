package opensubtitles

// searchResponse is one page of the upstream subtitle search.
type searchResponse struct {
	TotalPages int            `json:"total_pages"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	Data       []subtitleData `json:"data"`
}

type subtitleData struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Attributes subtitleAttributes `json:"attributes"`
}

type subtitleAttributes struct {
	SubtitleID     string         `json:"subtitle_id"`
	Language       string         `json:"language"`
	DownloadCount  int            `json:"download_count"`
	Release        string         `json:"release"`
	Comments       string         `json:"comments"`
	UploadDate     string         `json:"upload_date"`
	URL            string         `json:"url"`
	Files          []subtitleFile `json:"files"`
	FeatureDetails featureDetails `json:"feature_details"`
}

type subtitleFile struct {
	FileID   int64  `json:"file_id"`
	FileName string `json:"file_name"`
}

type featureDetails struct {
	FeatureID     int64  `json:"feature_id"`
	FeatureType   string `json:"feature_type"`
	Year          int    `json:"year"`
	Title         string `json:"title"`
	MovieName     string `json:"movie_name"`
	IMDBID        int64  `json:"imdb_id"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
}

// downloadResponse is the exchange of a file id for a short-lived link.
type downloadResponse struct {
	Link      string `json:"link"`
	FileName  string `json:"file_name"`
	Remaining int    `json:"remaining"`
}

// loginResponse is the credential login exchange.
type loginResponse struct {
	Token  string `json:"token"`
	Status int    `json:"status"`
}
