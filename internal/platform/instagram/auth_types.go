package instagram

type LoginResult struct {
	Success           bool
	UserID            int64
	Username          string
	TwoFactorRequired bool
	TwoFactorInfo     *TwoFactorInfo
	ChallengeRequired bool
	ChallengeURL      string
	Error             error
}

type TwoFactorInfo struct {
	TwoFactorIdentifier string `json:"two_factor_identifier"`
	Username            string `json:"username"`
}

type WebLoginResponse struct {
	Authenticated     bool          `json:"authenticated"`
	User              bool          `json:"user"`
	UserID            string        `json:"userId"`
	Status            string        `json:"status"`
	Message           string        `json:"message"`
	TwoFactorRequired bool          `json:"two_factor_required"`
	TwoFactorInfo     TwoFactorInfo `json:"two_factor_info"`
	CheckpointURL     string        `json:"checkpoint_url"`
	ErrorType         string        `json:"error_type"`
}

type Account struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type currentUserResponse struct {
	User   Account `json:"user"`
	Status string  `json:"status"`
}
